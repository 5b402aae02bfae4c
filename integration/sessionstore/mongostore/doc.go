// Package mongostore is a sessionstore.Store on MongoDB.
//
//	db, err := mongo.NewWithDatabase(ctx, cfg, "pbx") // integration/database/mongo
//	...
//	store := mongostore.NewFromDatabase(db)
package mongostore
