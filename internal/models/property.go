package models

// Defaults applied when the parcel registry omits a field.
const (
	AddressUnavailable = "Address Not Available"
	DefaultZoning      = "Residential"
)

// PropertyRecord is a parcel normalized from the parcel registry.
// Latitude and Longitude are either both resolved or both zero.
// Field order is optimized for memory alignment.
type PropertyRecord struct {
	Geometry  Geometry `json:"geometry"`
	CountyID  *int     `json:"county_id"`
	ParcelID  string   `json:"parcel_id"`
	Address   string   `json:"address"`
	City      string   `json:"city"`
	County    string   `json:"county"`
	State     string   `json:"state"`
	Zip       string   `json:"zip"`
	WKT       string   `json:"wkt"`
	Zoning    string   `json:"zoning"`
	Acreage   float64  `json:"acreage"`
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Price     float64  `json:"price"`
}

// HasLocation reports whether the record carries resolved coordinates.
func (r PropertyRecord) HasLocation() bool {
	return r.Latitude != 0 || r.Longitude != 0
}
