// Package matching decides whether release candidates satisfy a target
// identity.
//
// Identity is checked first: a shared IMDb id matches immediately, otherwise
// the candidate's recognized TMDB id and kind must equal the target's. A
// season target additionally requires the candidate to carry that season.
// Release filters run only on candidates that already matched.
package matching
