package rail

// MergeLiveTrains replaces scheduled trains with live reports of the same id and appends live trains without a
// scheduled counterpart. Neither input slice is modified.
func MergeLiveTrains(scheduled []Train, live []Train) []Train {
	liveIds := make(map[int]bool, len(live))
	for _, train := range live {
		liveIds[train.Id] = true
	}

	results := make([]Train, 0, len(scheduled)+len(live))
	for _, train := range scheduled {
		if liveIds[train.Id] {
			continue
		}
		train.Live = false
		results = append(results, train)
	}

	appended := make(map[int]bool, len(live))
	for _, train := range live {
		//a report listing the same trip twice keeps the first entry
		if appended[train.Id] {
			continue
		}
		appended[train.Id] = true
		results = append(results, train)
	}
	return results
}
