// Package minio provides a BlobStore backed by the MinIO client.
//
// It targets MinIO and other S3-compatible object stores (Ceph, Garage,
// SeaweedFS) without pulling in the AWS SDK, which makes it the right
// choice for air-gapped deployments. Source documents and cache
// snapshots are stored as objects under an optional key prefix.
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	    Secure: false,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	store := minioblob.NewStore(client, "my-bucket", "snapshots/")
//
// Writes stream through the client, so snapshots larger than memory
// upload without buffering. Range reads map to object range requests.
package minio
