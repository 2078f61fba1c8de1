// Package api exposes the project service over HTTP.
//
// Routes are registered on a gorilla/mux router by Handlers.RegisterRoutes.
// Every route requires an authenticated user (see pkg/middleware); the
// handler reads the user id from the request context and passes it to the
// service as the actor.
//
// Service errors are mapped in writeError: deny reasons become 403 with a
// message specific to the attempted action, validation failures 400, and
// missing projects, users, documents or comments 404.
package api
