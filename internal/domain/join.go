package domain

import "sort"

// AttachMetadata copies station name and coordinates from dir onto each
// observation. Stations absent from dir keep null metadata, their measured
// values are flagged FlagUnknownStation, and their ids are returned sorted.
func AttachMetadata(table CanonicalTable, dir StationDirectory) (CanonicalTable, []string) {
	out := make(CanonicalTable, len(table))
	unknown := map[string]struct{}{}

	for i, o := range table {
		st, ok := dir.Lookup(o.StationID)
		if !ok {
			unknown[o.StationID] = struct{}{}
			o.StationName, o.Latitude, o.Longitude, o.Elevation = "", nil, nil, nil
			if !o.Missing {
				o.QualityFlag = FlagUnknownStation
			}
			out[i] = o
			continue
		}
		lat, lon, elev := st.Latitude, st.Longitude, st.Elevation
		o.StationName = st.Name
		o.Latitude, o.Longitude, o.Elevation = &lat, &lon, &elev
		out[i] = o
	}

	ids := make([]string, 0, len(unknown))
	for id := range unknown {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return out, ids
}
