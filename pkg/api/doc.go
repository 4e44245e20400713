// Package api provides the HTTP REST API for the entitlement service.
//
// The API is built on gorilla/mux and split into handler groups: account
// (signup, email verification, profile), billing (plan, invoices, limits,
// tier switching, seat add-ons, cancellation, gateway webhooks), team
// (membership and invites), projects, and the public tier catalog.
//
// # Endpoints
//
//	POST   /user                        - Register an account, with or without an invite
//	GET    /user                        - Caller's own profile
//	GET    /user/verify_email/{uid}     - Confirm an email address
//	POST   /user/invite                 - Invite a member
//	POST   /user/invite/collaborator    - Invite a collaborator
//	GET    /tier                        - Tier catalog
//	GET    /tier/{id}                   - Single tier
//	GET    /billing/plan                - Current subscription
//	POST   /billing/plan                - Switch tier
//	GET    /billing/invoices            - Invoice history
//	GET    /billing/limits              - Limits and current usage
//	GET    /billing/addon-prices        - Per-seat add-on price
//	POST   /billing/addon               - Buy extra user seats
//	POST   /billing/cancel              - Cancel the paid subscription
//	POST   /billing/webhook             - Payment gateway webhook
//	GET    /team                        - Team with profiles and pending invites
//	GET    /project                     - List projects
//	POST   /project                     - Create a project
//	PUT    /project/{uid}               - Upload a project payload
//
// Error bodies are always {"message": string}. Quota rejections map to 401
// on the invite endpoints and 422 on project creation; existing clients
// depend on that split.
//
// Billing and team routes require authentication and reject collaborators
// at the middleware layer. Project listing stays open to collaborators; the
// orchestrator enforces the rest per operation.
package api
