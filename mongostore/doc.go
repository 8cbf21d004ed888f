// Package mongostore is the MongoDB goAccount.UserStore.
//
// Users live in a single collection with unique indexes on username, email
// and phoneNumber. A duplicate-key write is reported as a
// *goAccount.ConflictError naming the colliding fields, so a race that slips
// past the Engine's uniqueness probes still surfaces as a 400.
package mongostore
