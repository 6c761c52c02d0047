// Package seed loads the initial state of a navigation store from CUE.
//
// A seed file describes the stack a store starts with:
//
//	basename: "app"
//	index:    1
//	entries: [
//		{path: "/"},
//		{path: "/users/1?tab=posts", state: {scroll: 120}},
//	]
//
// index defaults to the last entry. Every entry may carry a key; entries
// without one get a generated key when the seed is built. JSON is valid
// CUE, so the same loader reads .json seeds.
package seed
