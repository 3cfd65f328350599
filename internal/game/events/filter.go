package events

// FilterByLocation keeps the records that happened at location. Records with
// no location are kept when they belong to actor.
func FilterByLocation(location, actor string, evs []WorldEvent) []WorldEvent {
	out := make([]WorldEvent, 0, len(evs))
	for _, e := range evs {
		if e.Location == location || (e.Location == "" && e.Actor == actor) {
			out = append(out, e)
		}
	}
	return out
}
