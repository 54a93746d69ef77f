// Package backup writes point-in-time copies of the table to a sink without
// blocking the caller for the duration of the write.
//
// A backup has two phases. The snapshot phase runs synchronously on the caller's
// goroutine and captures the content while all buckets are read-locked. The write
// phase hands the captured bytes to an ISink in a dedicated goroutine. The Manager
// bounds the number of backups in flight: a backup only starts once at most
// maxConcurrent backups are active.
//
// Sinks:
//   - NewFileSink: one file per backup in a directory
//   - NewS3Sink: one object per backup in an S3 bucket (minio-go)
package backup
