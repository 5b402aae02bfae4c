// Package cudatel is a session-maintaining client for the CudaTel web GUI API.
//
// It logs in with a username and password, keeps the session token in a
// store across process restarts, checks a cached token with the server
// before reusing it, logs in again (retrying once) when the token is
// rejected, and forwards arbitrary GUI API calls with the token attached.
//
// # Package Organization
//
//	github.com/dmitrymomot/cudatel                       - Client facade: boot, profiles, store selection
//	github.com/dmitrymomot/cudatel/core/tunnel           - Session manager, request builder, response router
//	github.com/dmitrymomot/cudatel/core/sessionstore     - Store interface, memory and JSON file stores
//	github.com/dmitrymomot/cudatel/core/event            - Lifecycle event publisher, transports and processor
//	github.com/dmitrymomot/cudatel/core/config           - Environment and .env loading
//	github.com/dmitrymomot/cudatel/core/logger           - slog construction and attribute helpers
//	github.com/dmitrymomot/cudatel/core/health           - Readiness checks over store backends
//	github.com/dmitrymomot/cudatel/pkg/query             - Ordered query maps and bracket-style serialization
//	github.com/dmitrymomot/cudatel/pkg/async             - Futures for non-blocking calls
//
// Session store backends:
//
//	github.com/dmitrymomot/cudatel/integration/sessionstore/redisstore - Redis
//	github.com/dmitrymomot/cudatel/integration/sessionstore/pgstore    - PostgreSQL (goose migrations)
//	github.com/dmitrymomot/cudatel/integration/sessionstore/mongostore - MongoDB
//	github.com/dmitrymomot/cudatel/integration/sessionstore/s3store    - S3 and S3-compatible services
//	github.com/dmitrymomot/cudatel/integration/database/{redis,pg,mongo} - connection setup with retry
//
// # Configuration
//
// CUDATEL_ENV selects a profile; the profile reads CUDATEL_<ENV>_HOST,
// CUDATEL_<ENV>_SCHEME, CUDATEL_<ENV>_USER and CUDATEL_<ENV>_PASS.
// CUDATEL_STORE picks the session store (file, memory, redis, postgres,
// mongo, s3). See Config for the rest.
//
// # Example Usage
//
//	c := cudatel.Boot(ctx)
//	if err := c.Wait(ctx); err != nil {
//		log.Fatal(err)
//	}
//	defer c.Close(ctx)
//
//	if _, err := c.Open(ctx); err != nil {
//		log.Fatal(err)
//	}
//
//	res, err := c.Send(ctx, "/gui/user/list", query.New().Set("rows", 50))
//	if err != nil {
//		log.Fatal(err)
//	}
//	for _, u := range res.Get("data.#.bbx_user_username").Array() {
//		fmt.Println(u.String())
//	}
//
// Calls made before the client is ready fail with ErrNotReady.
package cudatel
