// Package security implements the alarm state machine.
//
// StateMachine derives the alarm status from the arming status, sensor
// activations and image checks. It reads and writes state only through the
// StatusRepository it was built with, asks an ImageClassifier whether a
// captured image contains a cat, and reports changes to StatusListeners.
//
// A StateMachine has a single owner and is not safe for concurrent use;
// callers that share one must serialize access.
package security
