// Package teams manages teams and their membership: user accounts, profiles
// with roles, invites, email verifications, projects and API tokens.
package teams
