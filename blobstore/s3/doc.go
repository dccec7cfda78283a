// Package s3 provides a BlobStore backed by Amazon S3.
//
// Reads are served as range requests, so restoring part of a snapshot
// never downloads the whole object. Writes stream through multipart
// uploads with CRC32C checksums attached for server-side verification;
// see UploadConfig for tuning.
//
//	cfg, err := config.LoadDefaultConfig(ctx)
//	if err != nil { ... }
//
//	client := awss3.NewFromConfig(cfg) // github.com/aws/aws-sdk-go-v2/service/s3
//	store := s3.NewStore(client, "my-bucket", "snapshots/")
//
// The root prefix namespaces all keys, so several engines can share one
// bucket without colliding.
package s3
