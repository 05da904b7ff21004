package models

// ChangeSet is an ordered batch of record mutations belonging to one logical
// user action. It is built by the caller (or by the session's terminal
// methods), consumed exactly once, and never persisted itself; only the
// AuditEntry rows derived from it are.
//
// Cardinality rules: non-empty always; CREATE and DELETE carry exactly one
// member; UPDATE carries one or more members, each a pre-existing row with an
// assigned key.
type ChangeSet struct {
	Action  Action
	Records []Record
}

// Size returns the number of members in the change-set.
func (cs ChangeSet) Size() int {
	return len(cs.Records)
}
