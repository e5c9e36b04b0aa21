// Package api provides the municipal portal REST API: public citizen
// endpoints under /api/v1/public and the API-key-protected back office
// under /api/v1, including the maintenance ops surface under /api/v1/ops.
package api
