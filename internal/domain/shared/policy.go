package shared

// Policy describes how a failure of a given kind is handled
type Policy struct {
	// Retry means the call is retried with backoff up to a bounded attempt count
	Retry bool
	// ItemFailure means the failure is recorded against the item and siblings continue
	ItemFailure bool
	// JobFailure means the owning job is terminated as failed
	JobFailure bool
	// Reject means the request is refused at the boundary
	Reject bool
}

var policyTable = map[ErrorKind]Policy{
	KindValidation:            {ItemFailure: true, Reject: true},
	KindTransientPlatform:     {Retry: true, ItemFailure: true},
	KindSignatureVerification: {Reject: true},
	KindUnresolvedMapping:     {ItemFailure: true},
	KindFatalSetup:            {JobFailure: true},
	KindNotFound:              {ItemFailure: true},
	KindInvalidState:          {Reject: true},
	KindInternal:              {ItemFailure: true},
}

// PolicyFor looks up the handling policy for err
func PolicyFor(err error) Policy {
	if err == nil {
		return Policy{}
	}
	if p, ok := policyTable[KindOf(err)]; ok {
		return p
	}
	return policyTable[KindInternal]
}

// IsRetryable reports whether err should be retried
func IsRetryable(err error) bool {
	return PolicyFor(err).Retry
}

// IsFatal reports whether err terminates a job
func IsFatal(err error) bool {
	return PolicyFor(err).JobFailure
}
