// Package mongo connects to MongoDB with the official v2 driver.
//
//	client, err := mongo.New(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Disconnect(ctx)
//
// New retries connect and ping with exponential backoff, which covers Atlas
// cold starts of several seconds. Config fields map to MONGODB_* variables;
// MONGODB_URL is required.
package mongo
