package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content hashes. The version suffix allows the
// algorithm to change without colliding with old hashes.
const (
	DomainLocation = "navstate/location/v1"
	DomainEntries  = "navstate/entries/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null byte keeps the domain/data boundary unambiguous.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// LocationObject converts a Location into an Object for canonical encoding.
func LocationObject(l Location) Object {
	state := l.State
	if state == nil {
		state = Object{}
	}
	return Object{
		"url":      String(l.URL),
		"pathname": String(l.Pathname),
		"search":   String(l.Search),
		"hash":     String(l.Hash),
		"state":    state,
		"key":      String(l.Key),
	}
}

// MarshalEntries encodes entries as a canonical JSON array.
func MarshalEntries(entries []Location) ([]byte, error) {
	arr := make(Array, len(entries))
	for i, e := range entries {
		arr[i] = LocationObject(e)
	}
	return MarshalCanonical(arr)
}

// LocationHash computes the content hash of a single entry.
func LocationHash(l Location) (string, error) {
	canonical, err := MarshalCanonical(LocationObject(l))
	if err != nil {
		return "", fmt.Errorf("LocationHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainLocation, canonical), nil
}

// EntriesHash computes the content hash of an entry stack. Two stacks with
// the same entries in the same order hash identically.
func EntriesHash(entries []Location) (string, error) {
	canonical, err := MarshalEntries(entries)
	if err != nil {
		return "", fmt.Errorf("EntriesHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainEntries, canonical), nil
}

// MustEntriesHash is like EntriesHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustEntriesHash(entries []Location) string {
	h, err := EntriesHash(entries)
	if err != nil {
		panic(err)
	}
	return h
}
