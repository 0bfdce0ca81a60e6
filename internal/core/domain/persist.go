package domain

// PersistStatus tells how storing a single record ended.
type PersistStatus int

const (
	PersistStored PersistStatus = iota
	PersistFailedIdentified
	PersistFailedUnidentified
)

func (s PersistStatus) String() string {
	switch s {
	case PersistStored:
		return "stored"
	case PersistFailedIdentified:
		return "failed"
	case PersistFailedUnidentified:
		return "failed_unidentified"
	default:
		return "unknown"
	}
}

// PersistOutcome is the result of storing one record.
type PersistOutcome struct {
	Status PersistStatus
	CaseID CaseID // set for PersistFailedIdentified
	Err    error
}

// Stored reports a successfully stored record.
func Stored() PersistOutcome {
	return PersistOutcome{Status: PersistStored}
}

// PersistFailed builds the failure outcome for rec, naming it when possible.
func PersistFailed(rec CaseRecord, err error) PersistOutcome {
	if id, ok := rec.CaseNumber(); ok {
		return PersistOutcome{Status: PersistFailedIdentified, CaseID: id, Err: err}
	}
	return PersistOutcome{Status: PersistFailedUnidentified, Err: err}
}
