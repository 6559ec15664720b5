package dispatcher

import (
	"strconv"
	"strings"

	"github.com/vivekkdagar/redix/internal/keyspace"
	"github.com/vivekkdagar/redix/internal/resp"
)

func cmdGeoAdd(c *cmdContext) resp.Value {
	rest := c.args[2:]
	if len(rest)%3 != 0 || len(rest) == 0 {
		return errSyntax()
	}
	members := make([]keyspace.GeoMember, len(rest)/3)
	for i := range members {
		lon, err := strconv.ParseFloat(rest[3*i], 64)
		if err != nil {
			return toErrorValue(keyspace.ErrNotFloat)
		}
		lat, err := strconv.ParseFloat(rest[3*i+1], 64)
		if err != nil {
			return toErrorValue(keyspace.ErrNotFloat)
		}
		members[i] = keyspace.GeoMember{Lon: lon, Lat: lat, Member: rest[3*i+2]}
	}
	n, err := c.d.KS.GeoAdd(c.sess.DBIndex, c.args[1], members)
	if err != nil {
		return toErrorValue(err)
	}
	return resp.NewInt(n)
}

func cmdGeoPos(c *cmdContext) resp.Value {
	members := c.args[2:]
	vals := make([]resp.Value, len(members))
	for i, m := range members {
		lon, lat, ok, err := c.d.KS.GeoPos(c.sess.DBIndex, c.args[1], m)
		if err != nil {
			return toErrorValue(err)
		}
		if !ok {
			vals[i] = resp.NullArray()
			continue
		}
		vals[i] = resp.NewArray([]resp.Value{
			resp.NewBulk(strconv.FormatFloat(lon, 'f', -1, 64)),
			resp.NewBulk(strconv.FormatFloat(lat, 'f', -1, 64)),
		})
	}
	return resp.NewArray(vals)
}

func cmdGeoDist(c *cmdContext) resp.Value {
	unit := "m"
	if len(c.args) > 4 {
		unit = c.args[4]
	}
	d, ok, err := c.d.KS.GeoDist(c.sess.DBIndex, c.args[1], c.args[2], c.args[3], unit)
	if err != nil {
		return toErrorValue(err)
	}
	if !ok {
		return resp.NullBulk()
	}
	return resp.NewBulk(strconv.FormatFloat(d, 'f', 4, 64))
}

// cmdGeoSearch implements GEOSEARCH key FROMLONLAT lon lat BYRADIUS radius
// unit (spec.md §4.2 geospatial section).
func cmdGeoSearch(c *cmdContext) resp.Value {
	args := c.args[1:]
	if len(args) != 7 || !strings.EqualFold(args[1], "FROMLONLAT") || !strings.EqualFold(args[4], "BYRADIUS") {
		return errSyntax()
	}
	lon, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return toErrorValue(keyspace.ErrNotFloat)
	}
	lat, err := strconv.ParseFloat(args[3], 64)
	if err != nil {
		return toErrorValue(keyspace.ErrNotFloat)
	}
	radius, err := strconv.ParseFloat(args[5], 64)
	if err != nil {
		return toErrorValue(keyspace.ErrNotFloat)
	}
	unit := args[6]
	results, err := c.d.KS.GeoSearch(c.sess.DBIndex, args[0], lon, lat, radius, unit)
	if err != nil {
		return toErrorValue(err)
	}
	vals := make([]resp.Value, len(results))
	for i, r := range results {
		vals[i] = resp.NewBulk(r.Member)
	}
	return resp.NewArray(vals)
}
