// Package archive stores camera images that contained a cat in S3.
package archive
