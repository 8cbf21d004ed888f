// Package goAccount provides a user-account engine: registration with email OTP
// verification, bcrypt credentials, HS256 access/refresh tokens, and logout.
//
// Engine methods are safe to call from multiple goroutines after initialization
// through [Builder.Build].
//
// # Verification flow
//
// Registration binds a six-digit code to a random opaque id in Redis
// ("emailId::<id>") and mails the code. The client only ever holds the opaque
// id; [Engine.ConfirmVerification] resolves id → email → code in one atomic
// step and marks the account verified. Ids are claimed with SET NX, so two
// concurrent registrations can never share one.
//
// # Architecture boundaries
//
// goAccount is the public surface. It exposes [Engine], [Builder], [Config], the
// [UserStore] and [Mailer] collaborator interfaces, and value types. Binding
// storage, throttling and audit dispatch live under internal/ and are never
// exported. Durable stores (mongostore, memstore) and the HTTP adapter
// (httpapi) are separate packages that import this one.
//
// # What this package must NOT do
//
//   - Expose Redis clients, internal stores, or record encodings in its public API.
//   - Return plaintext passwords, digests, or stored refresh tokens in JSON.
//   - Import any sub-package that re-imports goAccount (no import cycles).
package goAccount
