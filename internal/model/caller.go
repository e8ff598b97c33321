package model

// Caller is the authenticated identity resolved from an inbound request
// before any reservation operation runs.  The same identity acts as a
// diner on /user routes and as a restaurant operator on /restaurant
// routes; restaurant ownership is verified per request, so no role is
// carried.
type Caller struct {
	UserID uint64 // subject of the access token
}
