package domain

import "time"

// ListOpts provides pagination for list queries.
type ListOpts struct {
	Limit  int
	Offset int
}

// MarketFilter narrows a marketplace listing query.
type MarketFilter string

const (
	FilterAll     MarketFilter = ""
	FilterSale    MarketFilter = "sale"
	FilterAuction MarketFilter = "auction"
)

// Snapshot is the complete result of one scan for one view. It is immutable
// once published and always replaced wholesale, never mutated in place.
type Snapshot struct {
	View        View
	Records     []NftRecord
	TotalSupply uint64
	TakenAt     time.Time

	byToken map[uint64]int
}

// NewSnapshot builds a Snapshot and its token index.
func NewSnapshot(view View, records []NftRecord, totalSupply uint64, takenAt time.Time) *Snapshot {
	idx := make(map[uint64]int, len(records))
	for i, r := range records {
		idx[r.TokenID] = i
	}
	return &Snapshot{
		View:        view,
		Records:     records,
		TotalSupply: totalSupply,
		TakenAt:     takenAt,
		byToken:     idx,
	}
}

// Get returns the record for tokenID, if the token is a member of this view.
func (s *Snapshot) Get(tokenID uint64) (NftRecord, bool) {
	i, ok := s.byToken[tokenID]
	if !ok {
		return NftRecord{}, false
	}
	return s.Records[i], true
}

// Filter returns the records matching the given marketplace filter, in token
// order. FilterAll returns every record.
func (s *Snapshot) Filter(f MarketFilter) []NftRecord {
	if f == FilterAll {
		return s.Records
	}
	var out []NftRecord
	for _, r := range s.Records {
		switch f {
		case FilterSale:
			if r.Status.Kind == StatusForSale {
				out = append(out, r)
			}
		case FilterAuction:
			if r.Status.Kind == StatusInAuction {
				out = append(out, r)
			}
		}
	}
	return out
}

// Page applies pagination to records. Requests past the end yield an empty
// (non-nil) page.
func Page(records []NftRecord, opts ListOpts) []NftRecord {
	if opts.Limit <= 0 {
		opts.Limit = 50
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}
	if opts.Offset >= len(records) {
		return []NftRecord{}
	}
	end := opts.Offset + opts.Limit
	if end > len(records) {
		end = len(records)
	}
	return records[opts.Offset:end]
}

// ScanState is the externally observable state of a view's scan loop.
type ScanState string

const (
	ScanIdle     ScanState = "idle"
	ScanScanning ScanState = "scanning"
	ScanFailed   ScanState = "failed"
)

// ScanStatus reports a view's scan loop state to API consumers.
type ScanStatus struct {
	View      View
	State     ScanState
	LastScan  time.Time // zero until the first successful scan
	LastError string    // most recent batch-level failure, empty otherwise
}
