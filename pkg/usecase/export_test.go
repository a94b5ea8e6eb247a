package usecase

import "time"

// RevocationList exposes the sign-out revocation list for tests
type RevocationList struct {
	l *revocationList
}

func NewRevocationListForTest(now func() time.Time) *RevocationList {
	return &RevocationList{l: newRevocationList(now)}
}

func (r *RevocationList) Add(tokenID string, expiresAt time.Time) {
	r.l.add(tokenID, expiresAt)
}

func (r *RevocationList) Contains(tokenID string) bool {
	return r.l.contains(tokenID)
}

func (r *RevocationList) Len() int {
	return r.l.len()
}
