package dispatch

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"mistribazar/internal/models/job"
	"mistribazar/internal/models/user"
)

const earthRadiusKm = 6371

type Coordinates struct {
	Latitude  float64
	Longitude float64
}

// haversineKm is the great-circle distance between two points in kilometers.
func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	lat1 = lat1 * math.Pi / 180
	lon1 = lon1 * math.Pi / 180
	lat2 = lat2 * math.Pi / 180
	lon2 = lon2 * math.Pi / 180

	dlat := lat2 - lat1
	dlon := lon2 - lon1

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dlon/2)*math.Sin(dlon/2)
	c := 2 * math.Asin(math.Sqrt(a))

	return earthRadiusKm * c
}

// Nearby returns OPEN jobs within radiusKm of origin, closest first, ties
// broken by most recent posting. When origin is nil the actor's registered
// coordinates are used; with neither available the query fails with
// ErrMissingLocation rather than returning an unfiltered or empty set.
func (rt *Router) Nearby(actor user.Actor, origin *Coordinates, radiusKm float64) ([]job.NearbyJob, error) {
	const op = "dispatch.Nearby"

	if origin == nil {
		usr, err := rt.store.FetchUser(actor.Id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, fmt.Errorf("%s: %w", op, ErrMissingLocation)
			}
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if usr.Latitude == nil || usr.Longitude == nil {
			return nil, fmt.Errorf("%s: %w", op, ErrMissingLocation)
		}
		origin = &Coordinates{Latitude: *usr.Latitude, Longitude: *usr.Longitude}
	}

	open, err := rt.store.ReadJobs(job.StatusOpen, "")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result := make([]job.NearbyJob, 0)
	for _, j := range open {
		d := haversineKm(origin.Latitude, origin.Longitude, j.Latitude, j.Longitude)
		if d <= radiusKm {
			result = append(result, job.NearbyJob{Job: j, DistanceKm: d})
		}
	}

	sort.Slice(result, func(i, k int) bool {
		if result[i].DistanceKm != result[k].DistanceKm {
			return result[i].DistanceKm < result[k].DistanceKm
		}
		return result[i].CreatedAt.After(result[k].CreatedAt)
	})

	return result, nil
}
