package location

import (
	"math"

	"github.com/dhconnelly/rtreego"
)

// OverlapThreshold is the distance in degrees under which two pins are
// considered overlapping.
const OverlapThreshold = 0.0001

const (
	minChildren = 25
	maxChildren = 50
)

// indexed wraps a record position for R-tree indexing.
type indexed struct {
	idx  int
	lat  float64
	lon  float64
	rect *rtreego.Rect
}

func (i *indexed) Bounds() *rtreego.Rect {
	return i.rect
}

// Parse returns a normalized copy of records. When a record lies within
// OverlapThreshold of a record with a lower id, its latitude is nudged by the
// threshold away from that record. The input slice is never modified and the
// result only depends on the input order.
func Parse(records []Record) []Record {
	out := make([]Record, len(records))
	if len(records) == 0 {
		return out
	}

	tree := rtreego.NewTree(2, minChildren, maxChildren)
	for i, r := range records {
		tree.Insert(&indexed{
			idx:  i,
			lat:  r.Latitude,
			lon:  r.Longitude,
			rect: rtreego.Point{r.Latitude, r.Longitude}.ToRect(OverlapThreshold / 10),
		})
	}

	for i, r := range records {
		rec := r.clone()
		if other, ok := overlapping(tree, records, i); ok {
			if other.Latitude > rec.Latitude {
				rec.Latitude -= OverlapThreshold
			} else {
				rec.Latitude += OverlapThreshold
			}
		}
		out[i] = rec
	}
	return out
}

// overlapping finds, in input order, the first record overlapping records[i]
// with a lower id. Comparisons use the original, un-nudged coordinates.
func overlapping(tree *rtreego.Rtree, records []Record, i int) (Record, bool) {
	r := records[i]
	box, err := rtreego.NewRect(
		rtreego.Point{r.Latitude - 2*OverlapThreshold, r.Longitude - 2*OverlapThreshold},
		[]float64{4 * OverlapThreshold, 4 * OverlapThreshold},
	)
	if err != nil {
		return Record{}, false
	}

	best := -1
	for _, s := range tree.SearchIntersect(box) {
		item := s.(*indexed)
		if item.idx == i {
			continue
		}
		if math.Abs(item.lat-r.Latitude) >= OverlapThreshold || math.Abs(item.lon-r.Longitude) >= OverlapThreshold {
			continue
		}
		if CompareIDs(records[item.idx].ID, r.ID) >= 0 {
			continue
		}
		if best == -1 || item.idx < best {
			best = item.idx
		}
	}
	if best == -1 {
		return Record{}, false
	}
	return records[best], true
}
