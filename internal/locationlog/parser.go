package locationlog

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jengzang/location-replay-go/internal/models"
)

// Record is one parsed data row
type Record struct {
	Location models.Location
	State    models.UserState
}

// ParseRecord converts one data row under schema. The caller filters out
// comment and blank lines. A latitude or longitude that does not parse
// leaves the coordinate at models.ZeroLatLng instead of failing the row.
func ParseRecord(schema *Schema, line string) (Record, error) {
	if schema == nil {
		return Record{}, fmt.Errorf("%w: nil schema", models.ErrConfiguration)
	}

	tokens := strings.Split(line, schema.delimiter)
	if len(tokens) != len(schema.columns) {
		return Record{}, &ColumnCountError{Schema: schema.name, Want: len(schema.columns), Got: len(tokens)}
	}

	var (
		rec         Record
		lat, lng    float64
		latOK       bool
		lngOK       bool
		stateValues = make([]models.Value, 0, len(schema.stateNames))
	)

	for i, col := range schema.columns {
		tok := tokens[i]

		switch col.Role {
		case RoleLatitude:
			lat, latOK = parseCoordinate(tok)
			continue
		case RoleLongitude:
			lng, lngOK = parseCoordinate(tok)
			continue
		}

		v, err := parseValue(col, tok)
		if err != nil {
			return Record{}, &FieldParseError{Column: col.Name, Index: i, Value: tok, Err: err}
		}

		if col.Role == RoleState {
			stateValues = append(stateValues, v)
			continue
		}
		assign(&rec.Location, col.Role, v)
	}

	if latOK && lngOK {
		rec.Location.LatitudeLongitude = models.LatLng{Lat: lat, Lng: lng}
	}
	rec.State = models.NewUserState(schema.name, schema.stateNames, stateValues)

	return rec, nil
}

func parseCoordinate(tok string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(tok), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func parseValue(col Column, tok string) (models.Value, error) {
	trimmed := strings.TrimSpace(tok)
	if col.Optional && trimmed == Unsupported {
		return models.NullValue(col.Kind), nil
	}

	switch col.Kind {
	case models.KindString:
		return models.StringValue(tok), nil
	case models.KindFloat:
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return models.Value{}, err
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return models.Value{}, errNonFinite
		}
		return models.FloatValue(f), nil
	case models.KindBool:
		b, err := parseBool(trimmed)
		if err != nil {
			return models.Value{}, err
		}
		return models.BoolValue(b), nil
	case models.KindInt:
		i, err := strconv.ParseInt(trimmed, 10, 64)
		if err != nil {
			return models.Value{}, err
		}
		return models.IntValue(i), nil
	case models.KindTimestamp:
		t, err := time.ParseInLocation(TimestampLayout, trimmed, time.UTC)
		if err != nil {
			return models.Value{}, err
		}
		return models.TimeValue(t), nil
	default:
		return models.Value{}, fmt.Errorf("unsupported value kind %s", col.Kind)
	}
}

// parseBool accepts the True/False spelling of the logs in any case
func parseBool(s string) (bool, error) {
	switch {
	case strings.EqualFold(s, "true"):
		return true, nil
	case strings.EqualFold(s, "false"):
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", s)
}

func assign(loc *models.Location, role Role, v models.Value) {
	switch role {
	case RoleServiceEnabled:
		loc.IsLocationServiceEnabled = v.Bool
	case RoleServiceInitializing:
		loc.IsLocationServiceInitializing = v.Bool
	case RoleLocationUpdated:
		loc.IsLocationUpdated = v.Bool
	case RoleHeadingUpdated:
		loc.IsUserHeadingUpdated = v.Bool
	case RoleProvider:
		loc.Provider = v.Str
	case RoleProviderClass:
		loc.ProviderClass = v.Str
	case RoleDeviceTime:
		loc.DeviceTime = v.Time
	case RoleTimestamp:
		loc.Timestamp = v.Time
	case RoleAccuracy:
		loc.Accuracy = v.Float
	case RoleHeading:
		loc.UserHeading = v.Float
	case RoleOrientation:
		loc.DeviceOrientation = v.Float
	case RoleSpeed:
		if v.Valid {
			speed := v.Float
			loc.SpeedKmPerHour = &speed
		}
	case RoleHasFix:
		if v.Valid {
			fix := v.Bool
			loc.HasGpsFix = &fix
		}
	case RoleSatellitesUsed:
		if v.Valid {
			n := int(v.Int)
			loc.SatellitesUsed = &n
		}
	case RoleSatellitesInView:
		if v.Valid {
			n := int(v.Int)
			loc.SatellitesInView = &n
		}
	}
}

// valueOf is the inverse of assign, used by the writer
func valueOf(loc models.Location, role Role) models.Value {
	switch role {
	case RoleServiceEnabled:
		return models.BoolValue(loc.IsLocationServiceEnabled)
	case RoleServiceInitializing:
		return models.BoolValue(loc.IsLocationServiceInitializing)
	case RoleLocationUpdated:
		return models.BoolValue(loc.IsLocationUpdated)
	case RoleHeadingUpdated:
		return models.BoolValue(loc.IsUserHeadingUpdated)
	case RoleProvider:
		return models.StringValue(loc.Provider)
	case RoleProviderClass:
		return models.StringValue(loc.ProviderClass)
	case RoleDeviceTime:
		return models.TimeValue(loc.DeviceTime)
	case RoleTimestamp:
		return models.TimeValue(loc.Timestamp)
	case RoleLatitude:
		return models.FloatValue(loc.LatitudeLongitude.Lat)
	case RoleLongitude:
		return models.FloatValue(loc.LatitudeLongitude.Lng)
	case RoleAccuracy:
		return models.FloatValue(loc.Accuracy)
	case RoleHeading:
		return models.FloatValue(loc.UserHeading)
	case RoleOrientation:
		return models.FloatValue(loc.DeviceOrientation)
	case RoleSpeed:
		if loc.SpeedKmPerHour == nil {
			return models.NullValue(models.KindFloat)
		}
		return models.FloatValue(*loc.SpeedKmPerHour)
	case RoleHasFix:
		if loc.HasGpsFix == nil {
			return models.NullValue(models.KindBool)
		}
		return models.BoolValue(*loc.HasGpsFix)
	case RoleSatellitesUsed:
		if loc.SatellitesUsed == nil {
			return models.NullValue(models.KindInt)
		}
		return models.IntValue(int64(*loc.SatellitesUsed))
	case RoleSatellitesInView:
		if loc.SatellitesInView == nil {
			return models.NullValue(models.KindInt)
		}
		return models.IntValue(int64(*loc.SatellitesInView))
	}
	return models.Value{}
}
