package scrape

import (
	"fmt"
	"strings"
)

type blockFixture struct {
	id, slug, name, address string
	docks                   int
	lat, lon                string
	capacity                int
	bike, ebike, childSeat  int
}

// block renders a station the way the listing page serializes it, starting
// right after the "DockGroup:" delimiter and ending with the opening quote of
// the next key.
func (b blockFixture) block() string {
	return fmt.Sprintf(`%s":{"id":"%s","slug":"%s","name":"%s","__typename":"DockGroup",`+
		`"address":"%s","state":"active","availableDocks":%d,`+
		`"coord":{"__typename":"Coord","lat":%s,"lon":%s},"enabled":true,"capacity":%d,`+
		`"bike":{"count":%d},"bikeStock":{"__typename":"VehicleStock"},`+
		`"ebike":{"count":%d},"ebikeStock":{"__typename":"VehicleStock"},`+
		`"ebike_with_childseat":{"count":%d},"ebike_with_childseatStock":{"__typename":"VehicleStock"},`+
		`"pictures":[],"rating":null},"`,
		b.id, b.id, b.slug, b.name, b.address, b.docks, b.lat, b.lon, b.capacity, b.bike, b.ebike, b.childSeat)
}

var (
	duomoFixture = blockFixture{
		id: "101", slug: "duomo", name: "Duomo", address: "Piazza del Duomo",
		docks: 12, lat: "45.464211", lon: "9.191383", capacity: 24,
		bike: 3, ebike: 1, childSeat: 0,
	}
	cadornaFixture = blockFixture{
		id: "7", slug: "cadorna", name: "Cadorna", address: "Piazzale Cadorna, 14",
		docks: 20, lat: "45.46779", lon: "9.17557", capacity: 30,
		bike: 5, ebike: 2, childSeat: 1,
	}
	garibaldiFixture = blockFixture{
		id: "215", slug: "garibaldi-fs", name: "Garibaldi FS", address: "Piazza Sigmund Freud",
		docks: 8, lat: "45.484", lon: "9.1873", capacity: 18,
		bike: 6, ebike: 3, childSeat: 1,
	}
)

// page wraps raw station blocks into a listing page. The last block loses its
// trailing quote because the end anchor follows it directly.
func page(blocks ...string) string {
	var sb strings.Builder
	sb.WriteString(`<!DOCTYPE html><html><head><title>Stazioni</title></head><body>`)
	sb.WriteString(`<script id="__NEXT_DATA__" type="application/json">`)
	sb.WriteString(`{"props":{"pageProps":{"page":{"__typename":"Page","type":"stationMapPage","slug":null},"`)
	for _, b := range blocks {
		sb.WriteString(StationDelimiter)
		sb.WriteString(b)
	}
	payload := strings.TrimSuffix(sb.String(), `"`)
	sb.Reset()
	sb.WriteString(payload)
	sb.WriteString(EndAnchor)
	sb.WriteString(`,"locale":"it"}}}</script></body></html>`)
	return sb.String()
}
