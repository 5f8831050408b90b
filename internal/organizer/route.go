package organizer

import (
	"fmt"

	"xritd/internal/product"
	"xritd/internal/xrit"
)

// Route is where a segment belongs.
type Route struct {
	Satellite  string
	Region     string
	RegionCode uint8
	Pipeline   product.Pipeline
	// Channel names the buffer. For other products it is the key in
	// Group.Other.
	Channel string
}

var satelliteNames = map[uint16]string{
	13: "G13",
	15: "G15",
	16: "G16",
	17: "G17",
	43: "HIM8",
}

var regionNames = map[uint8]string{
	1: "FD",
	2: "NH",
	3: "SH",
	4: "US",
	5: "XX",
}

// Resolve maps a product header to its group and channel. Imager products
// encode the channel in the tens digit of the sub-product id (0 infrared,
// 1 visible, 2 water vapour) and the region in the units digit. Everything
// else lands in a named other buffer.
func Resolve(h xrit.Header) Route {
	id := h.Product.ProductID
	sub := h.Product.SubProductID
	other := fmt.Sprintf("%d-%d", id, sub)

	name, imager := satelliteNames[id]
	if !imager {
		return Route{
			Satellite: fmt.Sprintf("P%d", id),
			Region:    "Other",
			Pipeline:  product.PipelineOther,
			Channel:   other,
		}
	}

	code := uint8(sub % 10)
	route := Route{
		Satellite:  name,
		Region:     regionName(code),
		RegionCode: code,
	}
	switch sub / 10 {
	case 0:
		route.Pipeline, route.Channel = product.PipelineInfrared, "IR"
	case 1:
		route.Pipeline, route.Channel = product.PipelineVisible, "VIS"
	case 2:
		route.Pipeline, route.Channel = product.PipelineWaterVapour, "WV"
	default:
		route.Pipeline, route.Channel = product.PipelineOther, other
	}
	return route
}

func regionName(code uint8) string {
	if name, ok := regionNames[code]; ok {
		return name
	}
	return fmt.Sprintf("R%d", code)
}

func (r Route) buffer(g *product.Group) *product.ChannelBuffer {
	if r.Pipeline == product.PipelineOther {
		return g.OtherChannel(r.Channel)
	}
	return g.Channel(r.Pipeline)
}
