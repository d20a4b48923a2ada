// Package vidcore implements the identity core of a social video
// platform: the session-credential lifecycle (issuance, verification,
// rotation and revocation of access/refresh token pairs) and the
// relationship-graph read side (channel profiles with subscriber
// aggregates and the denormalized watch-history projection).
//
// Transport, file storage and persistence are collaborators reached
// through narrow interfaces; the package ships a go-router JSON
// controller and bun-backed repositories as its reference wiring.
package vidcore
