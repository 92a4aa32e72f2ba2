package model

// DefaultOptionPrice is used when a quote carries neither a last trade nor a bid.
const DefaultOptionPrice = 0.5

// OptionQuote is a single put quote from an option chain.
type OptionQuote struct {
	Strike    float64 `msgpack:"strike"`
	LastPrice float64 `msgpack:"last_price"`
	Bid       float64 `msgpack:"bid"`
	Expiry    string  `msgpack:"expiry"`
}

// Price returns the last traded price, falling back to the bid.
func (q OptionQuote) Price() float64 {
	if q.LastPrice > 0 {
		return q.LastPrice
	}
	if q.Bid > 0 {
		return q.Bid
	}
	return DefaultOptionPrice
}

// PriceBand is an inclusive strike range.
type PriceBand struct {
	Low  float64 `msgpack:"low"`
	High float64 `msgpack:"high"`
}

// OTMPutBand returns the [0.7, 0.9] x reference band of out-of-the-money puts.
func OTMPutBand(reference float64) PriceBand {
	return PriceBand{Low: reference * 0.7, High: reference * 0.9}
}

// Contains reports whether v lies inside the band.
func (b PriceBand) Contains(v float64) bool {
	return v >= b.Low && v <= b.High
}

// Covers reports whether other lies entirely inside b.
func (b PriceBand) Covers(other PriceBand) bool {
	return other.Low >= b.Low && other.High <= b.High
}

// OptionChain is the filtered put chain for one expiry together with the band
// it was filtered with.
type OptionChain struct {
	Symbol string        `msgpack:"symbol"`
	Puts   []OptionQuote `msgpack:"puts"`
	Expiry string        `msgpack:"expiry"`
	Band   PriceBand     `msgpack:"band"`
}

// Filter returns the puts whose strike lies inside band.
func (c OptionChain) Filter(band PriceBand) []OptionQuote {
	var out []OptionQuote
	for _, q := range c.Puts {
		if band.Contains(q.Strike) {
			out = append(out, q)
		}
	}
	return out
}
