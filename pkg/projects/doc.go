// Package projects owns the project registry, the membership ledger and the
// operations that mutate them.
//
// # Overview
//
// A project has exactly one owner, recorded twice: as projects.owner_id and
// as the single members row with is_owner = true. Both are written together
// by CreateProject and never independently, so they cannot drift.
//
// Every mutating Service method follows the same sequence:
//
//  1. load an access.Snapshot for the project
//  2. ask the access package for a decision
//  3. write to the store (one transaction where more than one row changes)
//  4. invalidate the project-list cache of every user whose visible set changed
//  5. return
//
// Step 4 runs after the write commits and before the caller sees success, so
// a client told "added" never reads a stale project list afterwards.
//
// # Invitations
//
// Invite resolves an email against the identity store. A registered user is
// attached as a member immediately; an unknown address gets an invitation
// mail and no member row. Re-inviting an address that has since registered
// is indistinguishable from a fresh add.
//
// # Usage Example
//
//	svc, err := projects.NewService(projects.Dependencies{
//		Store:  projects.NewPostgresStore(db),
//		Users:  identity.NewPostgresStore(db),
//		Cache:  listcache.NewMemoryCache(1024, 5*time.Minute),
//		Sender: notify.NewLogSender(log, "noreply@example.com"),
//	}, projects.DefaultServiceConfig())
//
//	p, err := svc.CreateProject(ctx, aliceID, "Docs")
//	res, err := svc.Invite(ctx, aliceID, p.ID, "bob@example.com")
package projects
