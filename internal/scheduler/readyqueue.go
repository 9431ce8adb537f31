// Package scheduler implements the ready-queue/poll loop: it picks the
// next test to run from the set whose dependencies are satisfied, bucketed
// by CPU demand and sorted by descending runtime estimate within a bucket.
package scheduler

import "sort"

// Item is one schedulable unit: an np/nd/nn resource demand plus a runtime
// estimate used only for ordering within its np bucket.
type Item struct {
	ID              string
	NumProcs        int
	NumDevices      int
	NumNodes        int
	RuntimeEstimate float64
}

// readyQueue groups ready items by np and keeps each bucket sorted by
// descending runtime estimate.
type readyQueue struct {
	buckets map[int][]Item
	npDesc  []int
}

func newReadyQueue() *readyQueue {
	return &readyQueue{buckets: make(map[int][]Item)}
}

func (q *readyQueue) add(item Item) {
	if _, ok := q.buckets[item.NumProcs]; !ok {
		q.npDesc = append(q.npDesc, item.NumProcs)
		sort.Sort(sort.Reverse(sort.IntSlice(q.npDesc)))
	}
	bucket := append(q.buckets[item.NumProcs], item)
	sort.SliceStable(bucket, func(i, j int) bool {
		return bucket[i].RuntimeEstimate > bucket[j].RuntimeEstimate
	})
	q.buckets[item.NumProcs] = bucket
}

func (q *readyQueue) remove(id string) {
	for np, bucket := range q.buckets {
		for i, item := range bucket {
			if item.ID == id {
				q.buckets[np] = append(bucket[:i], bucket[i+1:]...)
				if len(q.buckets[np]) == 0 {
					delete(q.buckets, np)
					q.pruneNP(np)
				}
				return
			}
		}
	}
}

func (q *readyQueue) pruneNP(np int) {
	for i, v := range q.npDesc {
		if v == np {
			q.npDesc = append(q.npDesc[:i], q.npDesc[i+1:]...)
			return
		}
	}
}

func (q *readyQueue) isEmpty() bool { return len(q.npDesc) == 0 }

// forEachDescending iterates np buckets from the largest CPU demand down,
// and within each bucket from longest to shortest estimated runtime.
func (q *readyQueue) forEachDescending(visit func(Item) bool) {
	for _, np := range q.npDesc {
		for _, item := range q.buckets[np] {
			if !visit(item) {
				return
			}
		}
	}
}
