// Package classifier provides ImageClassifier implementations that stand in
// for a real image recognition backend.
package classifier
