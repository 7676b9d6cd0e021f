package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"Ziyarawebserver/internal/domain"
)

type ToursStore struct {
	q Querier
}

// tourFilter renders the shared WHERE clause for search and aggregates.
// Unpublished tours and sold-out flights are always excluded.
type tourFilter struct {
	conds []string
	args  []any
}

func (f *tourFilter) add(cond string, args ...any) {
	for _, arg := range args {
		f.args = append(f.args, arg)
		cond = strings.Replace(cond, "?", fmt.Sprintf("$%d", len(f.args)), 1)
	}
	f.conds = append(f.conds, cond)
}

func (f *tourFilter) where() string {
	return strings.Join(f.conds, " AND ")
}

func buildTourFilter(p domain.TourSearchParams) tourFilter {
	var f tourFilter
	f.add(`t.is_published`)
	f.add(`f.availability <> '` + domain.AvailabilitySoldOut + `'`)
	if p.TourType != "" {
		f.add(`tt.value = ?`, p.TourType)
	}
	if p.Tariff != "" {
		f.add(`tf.value = ?`, p.Tariff)
	}
	if p.OperatorID != 0 {
		f.add(`t.operator_id = ?`, p.OperatorID)
	}
	if p.DepartureCity != "" {
		f.add(`(SELECT n.city FROM flight_nodes n WHERE n.direction_id = od.id ORDER BY n.position LIMIT 1) = ?`, p.DepartureCity)
	}
	// Single mode expands the requested date into its calendar day; range
	// mode is an inclusive interval over the exact timestamps given.
	switch p.DateMode {
	case domain.DateModeSingle:
		if p.DepartureDate != nil {
			from := dayStart(*p.DepartureDate)
			f.add(`od.departure_date >= ?`, from)
			f.add(`od.departure_date < ?`, from.AddDate(0, 0, 1))
		}
	case domain.DateModeRange:
		if p.DateStart != nil && p.DateEnd != nil {
			f.add(`od.departure_date >= ?`, *p.DateStart)
			f.add(`od.departure_date <= ?`, *p.DateEnd)
		}
	}
	return f
}

func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

const tourViewFrom = `
	FROM flights f
	JOIN tours t ON t.id = f.tour_id
	JOIN tour_types tt ON tt.id = t.tour_type_id
	JOIN tariffs tf ON tf.id = t.tariff_id
	JOIN flight_directions od ON od.flight_id = f.id AND od.direction = 'outbound'
`

const tourViewColumns = `
	f.id, t.id, f.price, f.availability,
	t.operator_name, t.operator_logo, t.operator_foundation_year, t.operator_verified, t.operator_features,
	t.title, tt.value, tt.label, tf.value, tf.label,
	t.duration, t.location, t.visa_included
`

// SearchTours returns one view per matching flight, ordered by outbound
// departure then price.
func (s *ToursStore) SearchTours(ctx context.Context, p domain.TourSearchParams) ([]domain.TourView, error) {
	f := buildTourFilter(p)
	q := `SELECT ` + tourViewColumns + tourViewFrom + `
		WHERE ` + f.where() + `
		ORDER BY od.departure_date, f.price, f.id
		LIMIT ` + fmt.Sprintf("$%d OFFSET $%d", len(f.args)+1, len(f.args)+2)
	args := append(f.args, p.Limit, p.Offset)

	views, viewTourIDs, err := s.queryTourRows(ctx, q, args)
	if err != nil {
		return nil, fmt.Errorf("search tours: %w", err)
	}
	if err := s.attachDetails(ctx, views, viewTourIDs); err != nil {
		return nil, fmt.Errorf("search tours: %w", err)
	}
	return views, nil
}

// GetToursByIDs resolves flight ids into views, preserving input order.
// Unknown ids are silently dropped; sold-out flights are included.
func (s *ToursStore) GetToursByIDs(ctx context.Context, ids []string) ([]domain.TourView, error) {
	if len(ids) == 0 {
		return []domain.TourView{}, nil
	}
	q := `SELECT ` + tourViewColumns + tourViewFrom + `
		WHERE f.id = ANY($1::uuid[])
		ORDER BY array_position($1::uuid[], f.id)`

	views, viewTourIDs, err := s.queryTourRows(ctx, q, []any{ids})
	if err != nil {
		return nil, fmt.Errorf("get tours by ids: %w", err)
	}
	if err := s.attachDetails(ctx, views, viewTourIDs); err != nil {
		return nil, fmt.Errorf("get tours by ids: %w", err)
	}
	return views, nil
}

// Aggregates summarizes matching flights per exact outbound departure
// timestamp. Callers that want per-day buckets must bucket client side.
func (s *ToursStore) Aggregates(ctx context.Context, p domain.TourSearchParams) ([]domain.TourAggregate, error) {
	f := buildTourFilter(p)
	q := `
		SELECT od.departure_date, trunc(avg(f.price))::int, min(f.price), count(*)
	` + tourViewFrom + `
		WHERE ` + f.where() + `
		GROUP BY od.departure_date
		ORDER BY od.departure_date`

	rows, err := s.q.Query(ctx, q, f.args...)
	if err != nil {
		return nil, fmt.Errorf("tour aggregates: %w", err)
	}
	defer rows.Close()

	out := []domain.TourAggregate{}
	for rows.Next() {
		var a domain.TourAggregate
		if err := rows.Scan(&a.Date, &a.AvgPrice, &a.MinPrice, &a.ToursCount); err != nil {
			return nil, fmt.Errorf("scan aggregate: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("tour aggregates: %w", err)
	}
	return out, nil
}

// queryTourRows scans flight-level rows into views. The second return value
// is the backing tour id per view, needed later for the hotel join.
func (s *ToursStore) queryTourRows(ctx context.Context, q string, args []any) ([]domain.TourView, []string, error) {
	rows, err := s.q.Query(ctx, q, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	views := []domain.TourView{}
	viewTourIDs := []string{}
	for rows.Next() {
		var (
			v          domain.TourView
			flightUUID pgtype.UUID
			tourUUID   pgtype.UUID
			features   pgtype.FlatArray[string]
		)
		if err := rows.Scan(
			&flightUUID,
			&tourUUID,
			&v.Price,
			&v.Availability,
			&v.Operator.Name,
			&v.Operator.Logo,
			&v.Operator.FoundationYear,
			&v.Operator.Verified,
			&features,
			&v.Title,
			&v.Type.Value,
			&v.Type.Label,
			&v.Tariff.Value,
			&v.Tariff.Label,
			&v.Duration,
			&v.Location,
			&v.VisaIncluded,
		); err != nil {
			return nil, nil, err
		}
		v.ID = uuidOrEmpty(flightUUID)
		v.Operator.Features = textArrayOrEmpty(features)
		views = append(views, v)
		viewTourIDs = append(viewTourIDs, uuidOrEmpty(tourUUID))
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return views, viewTourIDs, nil
}

// attachDetails fills hotels and flight directions on the already scanned
// views, issuing one query per detail kind.
func (s *ToursStore) attachDetails(ctx context.Context, views []domain.TourView, viewTourIDs []string) error {
	if len(views) == 0 {
		return nil
	}

	tourIDs := make([]string, 0, len(viewTourIDs))
	seen := map[string]bool{}
	for _, id := range viewTourIDs {
		if !seen[id] {
			seen[id] = true
			tourIDs = append(tourIDs, id)
		}
	}
	flightIDs := make([]string, len(views))
	for i := range views {
		flightIDs[i] = views[i].ID
	}

	hotelsByTour, err := s.hotelsByTour(ctx, tourIDs)
	if err != nil {
		return err
	}
	flightsByID, err := s.directionsByFlight(ctx, flightIDs)
	if err != nil {
		return err
	}

	for i := range views {
		views[i].Hotels = hotelsByTour[viewTourIDs[i]]
		if views[i].Hotels == nil {
			views[i].Hotels = []domain.HotelView{}
		}
		views[i].Flights = flightsByID[views[i].ID]
	}
	return nil
}

func (s *ToursStore) hotelsByTour(ctx context.Context, tourIDs []string) (map[string][]domain.HotelView, error) {
	const q = `
		SELECT tour_id, city, name, stars, rating, reviews_count, distance_text, maps_url, amenities
		FROM hotels
		WHERE tour_id = ANY($1::uuid[])
		ORDER BY tour_id, position
	`
	rows, err := s.q.Query(ctx, q, tourIDs)
	if err != nil {
		return nil, fmt.Errorf("load hotels: %w", err)
	}
	defer rows.Close()

	out := map[string][]domain.HotelView{}
	for rows.Next() {
		var (
			h         domain.HotelView
			tourUUID  pgtype.UUID
			stars     pgtype.Int4
			rating    pgtype.Float8
			reviews   pgtype.Int4
			amenities pgtype.FlatArray[string]
		)
		if err := rows.Scan(&tourUUID, &h.City, &h.Name, &stars, &rating, &reviews, &h.DistanceText, &h.MapsURL, &amenities); err != nil {
			return nil, fmt.Errorf("scan hotel: %w", err)
		}
		h.Stars = int4Ptr(stars)
		h.Rating = float8Ptr(rating)
		h.ReviewsCount = int4Ptr(reviews)
		h.Amenities = textArrayOrEmpty(amenities)
		tourID := uuidOrEmpty(tourUUID)
		out[tourID] = append(out[tourID], h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load hotels: %w", err)
	}
	return out, nil
}

func (s *ToursStore) directionsByFlight(ctx context.Context, flightIDs []string) (map[string]domain.TourFlights, error) {
	const q = `
		SELECT fd.flight_id, fd.direction, fd.departure_date, fd.included,
			fn.iata, fn.city, fn.layover_minutes
		FROM flight_directions fd
		LEFT JOIN flight_nodes fn ON fn.direction_id = fd.id
		WHERE fd.flight_id = ANY($1::uuid[])
		ORDER BY fd.flight_id, fd.direction, fn.position
	`
	rows, err := s.q.Query(ctx, q, flightIDs)
	if err != nil {
		return nil, fmt.Errorf("load flight directions: %w", err)
	}
	defer rows.Close()

	type dirKey struct {
		flightID  string
		direction string
	}
	type dirAccum struct {
		departure time.Time
		included  []string
		nodes     []domain.FlightNodeRow
	}
	accum := map[dirKey]*dirAccum{}
	for rows.Next() {
		var (
			flightUUID pgtype.UUID
			direction  string
			departure  time.Time
			included   pgtype.FlatArray[string]
			iata       pgtype.Text
			city       pgtype.Text
			layover    pgtype.Int4
		)
		if err := rows.Scan(&flightUUID, &direction, &departure, &included, &iata, &city, &layover); err != nil {
			return nil, fmt.Errorf("scan flight direction: %w", err)
		}
		key := dirKey{uuidOrEmpty(flightUUID), direction}
		d, ok := accum[key]
		if !ok {
			d = &dirAccum{departure: departure, included: textArrayOrEmpty(included)}
			accum[key] = d
		}
		if iata.Valid {
			d.nodes = append(d.nodes, domain.FlightNodeRow{
				Iata:           iata.String,
				City:           textOrEmpty(city),
				LayoverMinutes: int4Ptr(layover),
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load flight directions: %w", err)
	}

	out := map[string]domain.TourFlights{}
	for key, d := range accum {
		tf := out[key.flightID]
		view := domain.BuildDirectionView(d.departure, d.included, d.nodes)
		if key.direction == domain.DirectionOutbound {
			tf.Outbound = view
		} else {
			tf.Inbound = view
		}
		out[key.flightID] = tf
	}
	return out, nil
}

func (s *ToursStore) TourTypes(ctx context.Context) ([]domain.LookupValue, error) {
	return s.lookupValues(ctx, "tour_types")
}

func (s *ToursStore) Tariffs(ctx context.Context) ([]domain.LookupValue, error) {
	return s.lookupValues(ctx, "tariffs")
}

func (s *ToursStore) lookupValues(ctx context.Context, table string) ([]domain.LookupValue, error) {
	q := fmt.Sprintf(`SELECT value, label FROM %s ORDER BY id`, table)
	rows, err := s.q.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	defer rows.Close()

	out := []domain.LookupValue{}
	for rows.Next() {
		var v domain.LookupValue
		if err := rows.Scan(&v.Value, &v.Label); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	return out, nil
}

// DepartureCities lists the curated departure city table, for filter
// population. The table is maintained by ops, not derived from flight data.
func (s *ToursStore) DepartureCities(ctx context.Context) ([]string, error) {
	const q = `SELECT name FROM departure_cities ORDER BY id`
	rows, err := s.q.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list departure cities: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var city string
		if err := rows.Scan(&city); err != nil {
			return nil, fmt.Errorf("scan departure city: %w", err)
		}
		out = append(out, city)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list departure cities: %w", err)
	}
	return out, nil
}
