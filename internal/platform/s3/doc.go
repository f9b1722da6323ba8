// Package s3 archives run reports to an S3-compatible bucket.
//
// The bucket is created on first use. Reports are written under
// reports/<owner>/ so several owners can share one bucket.
package s3
