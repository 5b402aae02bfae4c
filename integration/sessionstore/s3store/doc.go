// Package s3store is a sessionstore.Store on Amazon S3 and S3-compatible
// services such as MinIO, Wasabi and DigitalOcean Spaces.
//
// Each user's record is one JSON object:
//
//	store, err := s3store.New(ctx, s3store.Config{
//		Bucket:         "pbx-sessions",
//		Region:         "us-east-1",
//		AccessKeyID:    "minioadmin",
//		SecretKey:      "minioadmin",
//		Endpoint:       "http://localhost:9000",
//		ForcePathStyle: true,
//		KeyPrefix:      "cudatel/sessions/",
//	})
//
// Leave the keys empty to use IAM roles or the AWS environment chain.
package s3store
