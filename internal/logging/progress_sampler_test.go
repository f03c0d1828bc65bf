package logging

import "testing"

func TestProgressSamplerBuckets(t *testing.T) {
	sampler := NewProgressSampler(5)

	if !sampler.ShouldLog(0, "encode") {
		t.Fatal("first event should log")
	}
	if sampler.ShouldLog(2, "encode") {
		t.Fatal("same bucket should be suppressed")
	}
	if !sampler.ShouldLog(5, "encode") {
		t.Fatal("next bucket should log")
	}
	if !sampler.ShouldLog(100, "encode") {
		t.Fatal("completion should log")
	}
	if sampler.ShouldLog(100, "encode") {
		t.Fatal("repeated completion should be suppressed")
	}
}

func TestProgressSamplerPhaseChange(t *testing.T) {
	sampler := NewProgressSampler(5)

	if !sampler.ShouldLog(50, "encode") {
		t.Fatal("first phase should log")
	}
	if !sampler.ShouldLog(50, "verify") {
		t.Fatal("phase change should log even in the same bucket")
	}
	if sampler.ShouldLog(50, "verify") {
		t.Fatal("repeated phase and bucket should be suppressed")
	}
}

func TestProgressSamplerUnknownPercent(t *testing.T) {
	sampler := NewProgressSampler(5)

	if !sampler.ShouldLog(-1, "stitch") {
		t.Fatal("unknown percent with new phase should log")
	}
	if sampler.ShouldLog(-1, "stitch") {
		t.Fatal("unknown percent without phase change should be suppressed")
	}
}

func TestProgressSamplerReset(t *testing.T) {
	sampler := NewProgressSampler(5)
	sampler.ShouldLog(50, "encode")
	sampler.Reset()
	if !sampler.ShouldLog(50, "encode") {
		t.Fatal("reset should allow the same event to log again")
	}
}
