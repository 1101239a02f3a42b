package locationlog

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/jengzang/location-replay-go/internal/models"
)

const (
	// Delimiter separates the columns of a data row
	Delimiter = ";"
	// CommentMarker starts a line that is never parsed
	CommentMarker = "#"
	// Unsupported is written in place of readings the device could not provide
	Unsupported = "[not supported by provider]"
	// TimestampLayout is the UTC timestamp format of the extended logs
	TimestampLayout = "20060102-150405.000"
)

// Role binds a column to a field of models.Location. Columns with
// RoleState end up in the sample's UserState.
type Role int

const (
	RoleState Role = iota
	RoleServiceEnabled
	RoleServiceInitializing
	RoleLocationUpdated
	RoleHeadingUpdated
	RoleProvider
	RoleProviderClass
	RoleDeviceTime
	RoleTimestamp
	RoleLatitude
	RoleLongitude
	RoleAccuracy
	RoleHeading
	RoleOrientation
	RoleSpeed
	RoleHasFix
	RoleSatellitesUsed
	RoleSatellitesInView
)

// roleKinds is the value kind every location role must be declared with
var roleKinds = map[Role]models.ValueKind{
	RoleServiceEnabled:      models.KindBool,
	RoleServiceInitializing: models.KindBool,
	RoleLocationUpdated:     models.KindBool,
	RoleHeadingUpdated:      models.KindBool,
	RoleProvider:            models.KindString,
	RoleProviderClass:       models.KindString,
	RoleDeviceTime:          models.KindTimestamp,
	RoleTimestamp:           models.KindTimestamp,
	RoleLatitude:            models.KindFloat,
	RoleLongitude:           models.KindFloat,
	RoleAccuracy:            models.KindFloat,
	RoleHeading:             models.KindFloat,
	RoleOrientation:         models.KindFloat,
	RoleSpeed:               models.KindFloat,
	RoleHasFix:              models.KindBool,
	RoleSatellitesUsed:      models.KindInt,
	RoleSatellitesInView:    models.KindInt,
}

// Column declares one field of a row
type Column struct {
	Name      string
	Kind      models.ValueKind
	Role      Role
	Optional  bool // the Unsupported marker parses to an invalid value
	Precision int  // decimals written for float columns; 0 writes the shortest form
}

// Schema is an immutable, ordered row layout
type Schema struct {
	name       string
	delimiter  string
	columns    []Column
	stateNames []string
}

// NewSchema validates and builds a schema. Exactly one latitude and one
// longitude column are required; other location roles may appear at most once.
func NewSchema(name, delimiter string, columns ...Column) (*Schema, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: schema name is empty", models.ErrConfiguration)
	}
	if delimiter == "" {
		return nil, fmt.Errorf("%w: schema %s has an empty delimiter", models.ErrConfiguration, name)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: schema %s declares no columns", models.ErrConfiguration, name)
	}

	s := &Schema{
		name:      name,
		delimiter: delimiter,
		columns:   make([]Column, len(columns)),
	}
	copy(s.columns, columns)

	names := make(map[string]bool, len(columns))
	roles := make(map[Role]bool, len(columns))
	for i, col := range s.columns {
		if col.Name == "" {
			return nil, fmt.Errorf("%w: schema %s column %d has no name", models.ErrConfiguration, name, i)
		}
		if strings.Contains(col.Name, delimiter) {
			return nil, fmt.Errorf("%w: schema %s column %q contains the delimiter", models.ErrConfiguration, name, col.Name)
		}
		if names[col.Name] {
			return nil, fmt.Errorf("%w: schema %s declares column %q twice", models.ErrConfiguration, name, col.Name)
		}
		names[col.Name] = true

		if col.Role == RoleState {
			s.stateNames = append(s.stateNames, col.Name)
			continue
		}
		want, ok := roleKinds[col.Role]
		if !ok {
			return nil, fmt.Errorf("%w: schema %s column %q has unknown role %d", models.ErrConfiguration, name, col.Name, col.Role)
		}
		if col.Kind != want {
			return nil, fmt.Errorf("%w: schema %s column %q must be %s, not %s", models.ErrConfiguration, name, col.Name, want, col.Kind)
		}
		if roles[col.Role] {
			return nil, fmt.Errorf("%w: schema %s binds role of column %q twice", models.ErrConfiguration, name, col.Name)
		}
		roles[col.Role] = true
	}

	if !roles[RoleLatitude] || !roles[RoleLongitude] {
		return nil, fmt.Errorf("%w: schema %s needs latitude and longitude columns", models.ErrConfiguration, name)
	}

	return s, nil
}

func mustSchema(name string, columns ...Column) *Schema {
	s, err := NewSchema(name, Delimiter, columns...)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Schema) Name() string      { return s.name }
func (s *Schema) Delimiter() string { return s.delimiter }

// Width is the number of columns in every data row
func (s *Schema) Width() int { return len(s.columns) }

func (s *Schema) Column(i int) Column { return s.columns[i] }

func (s *Schema) Columns() []Column {
	out := make([]Column, len(s.columns))
	copy(out, s.columns)
	return out
}

// StateNames lists the columns that make up the UserState, in row order
func (s *Schema) StateNames() []string {
	out := make([]string, len(s.stateNames))
	copy(out, s.stateNames)
	return out
}

// Header returns the documentation comment line naming every column
func (s *Schema) Header() string {
	names := make([]string, len(s.columns))
	for i, col := range s.columns {
		names[i] = col.Name
	}
	return CommentMarker + strings.Join(names, s.delimiter)
}

func (s *Schema) String() string {
	return fmt.Sprintf("%s(%d columns)", s.name, len(s.columns))
}

// Bundled schemas
var (
	// Minimal is the three-column activity log: position plus a resting flag
	Minimal = mustSchema("minimal",
		Column{Name: "latitude", Kind: models.KindFloat, Role: RoleLatitude, Precision: 8},
		Column{Name: "longitude", Kind: models.KindFloat, Role: RoleLongitude, Precision: 8},
		Column{Name: models.StateResting, Kind: models.KindBool},
	)

	// Extended is the twenty-column device log
	Extended = mustSchema("extended",
		Column{Name: "location service enabled", Kind: models.KindBool, Role: RoleServiceEnabled},
		Column{Name: "location service initializing", Kind: models.KindBool, Role: RoleServiceInitializing},
		Column{Name: "location updated", Kind: models.KindBool, Role: RoleLocationUpdated},
		Column{Name: "heading updated", Kind: models.KindBool, Role: RoleHeadingUpdated},
		Column{Name: "location provider", Kind: models.KindString, Role: RoleProvider},
		Column{Name: "location provider class", Kind: models.KindString, Role: RoleProviderClass},
		Column{Name: "time device [utc]", Kind: models.KindTimestamp, Role: RoleDeviceTime},
		Column{Name: "time location [utc]", Kind: models.KindTimestamp, Role: RoleTimestamp},
		Column{Name: "latitude", Kind: models.KindFloat, Role: RoleLatitude, Precision: 8},
		Column{Name: "longitude", Kind: models.KindFloat, Role: RoleLongitude, Precision: 8},
		Column{Name: "accuracy [m]", Kind: models.KindFloat, Role: RoleAccuracy, Precision: 1},
		Column{Name: "user heading [°]", Kind: models.KindFloat, Role: RoleHeading, Precision: 1},
		Column{Name: "device orientation [°]", Kind: models.KindFloat, Role: RoleOrientation, Precision: 1},
		Column{Name: "speed [km/h]", Kind: models.KindFloat, Role: RoleSpeed, Optional: true, Precision: 1},
		Column{Name: "has gps fix", Kind: models.KindBool, Role: RoleHasFix, Optional: true},
		Column{Name: "satellites used", Kind: models.KindInt, Role: RoleSatellitesUsed, Optional: true},
		Column{Name: "satellites in view", Kind: models.KindInt, Role: RoleSatellitesInView, Optional: true},
		Column{Name: models.StateCategory, Kind: models.KindString},
		Column{Name: models.StateMuted, Kind: models.KindBool, Optional: true},
		Column{Name: models.StateBatteryLevel, Kind: models.KindFloat, Precision: 1},
	)

	// Track carries location only; it records providers without state
	Track = mustSchema("track",
		Column{Name: "time location [utc]", Kind: models.KindTimestamp, Role: RoleTimestamp},
		Column{Name: "latitude", Kind: models.KindFloat, Role: RoleLatitude, Precision: 8},
		Column{Name: "longitude", Kind: models.KindFloat, Role: RoleLongitude, Precision: 8},
		Column{Name: "accuracy [m]", Kind: models.KindFloat, Role: RoleAccuracy, Precision: 1},
		Column{Name: "user heading [°]", Kind: models.KindFloat, Role: RoleHeading, Precision: 1},
		Column{Name: "speed [km/h]", Kind: models.KindFloat, Role: RoleSpeed, Optional: true, Precision: 1},
	)
)

// SchemaAuto asks Open to pick the schema from the first data row's width
const SchemaAuto = "auto"

var (
	schemasMu sync.RWMutex
	schemas   = make(map[string]*Schema)
)

func init() {
	for _, s := range []*Schema{Minimal, Extended, Track} {
		if err := RegisterSchema(s); err != nil {
			panic(err)
		}
	}
}

// RegisterSchema makes a schema available by name to LookupSchema and
// width detection
func RegisterSchema(s *Schema) error {
	if s == nil {
		return fmt.Errorf("%w: nil schema", models.ErrConfiguration)
	}
	if s.name == SchemaAuto {
		return fmt.Errorf("%w: schema name %q is reserved", models.ErrConfiguration, SchemaAuto)
	}

	schemasMu.Lock()
	defer schemasMu.Unlock()

	if _, ok := schemas[s.name]; ok {
		return fmt.Errorf("%w: schema %s already registered", models.ErrConfiguration, s.name)
	}
	schemas[s.name] = s
	return nil
}

// LookupSchema returns the registered schema with the given name
func LookupSchema(name string) (*Schema, error) {
	schemasMu.RLock()
	defer schemasMu.RUnlock()

	s, ok := schemas[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown schema %q", models.ErrConfiguration, name)
	}
	return s, nil
}

// SchemaForWidth returns the single registered schema with the given
// column count
func SchemaForWidth(width int) (*Schema, error) {
	var found []*Schema
	for _, s := range Schemas() {
		if s.Width() == width {
			found = append(found, s)
		}
	}

	switch len(found) {
	case 0:
		return nil, fmt.Errorf("%w: no schema with %d columns", models.ErrConfiguration, width)
	case 1:
		return found[0], nil
	default:
		return nil, fmt.Errorf("%w: %d schemas have %d columns", models.ErrConfiguration, len(found), width)
	}
}

// Schemas returns every registered schema ordered by name
func Schemas() []*Schema {
	schemasMu.RLock()
	out := make([]*Schema, 0, len(schemas))
	for _, s := range schemas {
		out = append(out, s)
	}
	schemasMu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].name < out[j].name
	})
	return out
}
