package reporter

import "sort"

// BucketState tracks a run bucket through a push.
type BucketState int

const (
	// StatePending buckets have no remote run yet.
	StatePending BucketState = iota
	// StateBound buckets are matched to a run of a plan entry.
	StateBound
	// StateSubmitted buckets had their results posted.
	StateSubmitted
)

func (s BucketState) String() string {
	switch s {
	case StatePending:
		return "PENDING"
	case StateBound:
		return "BOUND"
	case StateSubmitted:
		return "SUBMITTED"
	}
	return "UNKNOWN"
}

// bucket holds the desired statuses for one configuration set.
type bucket struct {
	key       string
	configIDs []int
	caseIDs   []int
	statuses  map[int]string
	runID     int
	entry     string
	state     BucketState
}

func newBucket(configIDs []int) *bucket {
	return &bucket{
		key:       ConfigKey(configIDs),
		configIDs: configIDs,
		caseIDs:   []int{},
		statuses:  make(map[int]string),
	}
}

// set records status for caseID, keeping case IDs in first-seen order.
func (b *bucket) set(caseID int, status string) {
	if _, ok := b.statuses[caseID]; !ok {
		b.caseIDs = append(b.caseIDs, caseID)
	}
	b.statuses[caseID] = status
}

// RunBucket is a read-only view of a bucket.
type RunBucket struct {
	Key       string
	ConfigIDs []int
	RunID     int
	Entry     string
	State     BucketState
	Cases     int
}

// Buckets returns a snapshot of the buffered runs in key order.
func (r *Reporter) Buckets() []RunBucket {
	out := make([]RunBucket, 0, len(r.buckets))
	for _, key := range r.sortedKeys() {
		b := r.buckets[key]
		out = append(out, RunBucket{
			Key:       b.key,
			ConfigIDs: append([]int(nil), b.configIDs...),
			RunID:     b.runID,
			Entry:     b.entry,
			State:     b.state,
			Cases:     len(b.caseIDs),
		})
	}
	return out
}

func (r *Reporter) sortedKeys() []string {
	keys := make([]string, 0, len(r.buckets))
	for k := range r.buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
