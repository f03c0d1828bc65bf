// Package streamlink wraps the streamlink CLI for segment capture and
// liveness probing. Capture tolerates flag differences across streamlink
// builds by falling back from a duration-limited invocation to a
// start-then-terminate invocation when the duration flag is rejected.
package streamlink
