// Package quota enforces per-user daily caps on gated gateway actions.
//
// Each user record carries a small limits object (date plus one counter per
// action kind). The Enforcer resolves the user's plan through a Policy and
// asks the Store to perform the compare-and-increment as one atomic step, so
// concurrent requests for the same user can never push a counter past its cap.
package quota
