package service

// Market is one result of the instrument search.
type Market struct {
	Epic           string `json:"epic"`
	InstrumentName string `json:"instrumentName"`
	MarketID       string `json:"marketId"`
	InstrumentType string `json:"instrumentType"`
	Expiry         string `json:"expiry"`
}

type searchResponse struct {
	Markets []Market `json:"markets"`
}

// MarketDetails is the dealing-relevant subset of /markets/{epic}.
type MarketDetails struct {
	Epic             string
	InstrumentName   string
	InstrumentType   string
	Bid              float64
	Offer            float64
	MarketStatus     string // TRADEABLE, CLOSED, ...
	MinStopDistance  float64
	MinLimitDistance float64
	MinDealSize      float64
	MaxDealSize      float64
	SizeIncrement    float64
}

// Mid is the midpoint of bid and offer.
func (d MarketDetails) Mid() float64 {
	return (d.Bid + d.Offer) / 2
}

// Tradeable reports whether orders can be worked right now.
func (d MarketDetails) Tradeable() bool {
	return d.MarketStatus == "TRADEABLE"
}

type distanceRule struct {
	Unit  string  `json:"unit"` // POINTS or PERCENTAGE
	Value float64 `json:"value"`
}

type marketDetailsResponse struct {
	Instrument struct {
		Epic    string  `json:"epic"`
		Name    string  `json:"name"`
		Type    string  `json:"type"`
		LotSize float64 `json:"lotSize"`
	} `json:"instrument"`
	DealingRules struct {
		MinDealSize                  distanceRule `json:"minDealSize"`
		MaxDealSize                  distanceRule `json:"maxDealSize"`
		MinNormalStopOrLimitDistance distanceRule `json:"minNormalStopOrLimitDistance"`
	} `json:"dealingRules"`
	Snapshot struct {
		Bid          float64 `json:"bid"`
		Offer        float64 `json:"offer"`
		MarketStatus string  `json:"marketStatus"`
	} `json:"snapshot"`
}

type positionsResponse struct {
	Positions []struct {
		Market struct {
			Epic           string `json:"epic"`
			InstrumentName string `json:"instrumentName"`
		} `json:"market"`
		Position struct {
			DealID      string  `json:"dealId"`
			Direction   string  `json:"direction"`
			Size        float64 `json:"size"`
			Level       float64 `json:"level"`
			CreatedDate string  `json:"createdDateUTC"`
		} `json:"position"`
	} `json:"positions"`
}

type workingOrdersResponse struct {
	WorkingOrders []struct {
		MarketData struct {
			Epic           string `json:"epic"`
			InstrumentName string `json:"instrumentName"`
		} `json:"marketData"`
		WorkingOrderData struct {
			DealID      string  `json:"dealId"`
			Direction   string  `json:"direction"`
			OrderSize   float64 `json:"orderSize"`
			OrderLevel  float64 `json:"orderLevel"`
			CreatedDate string  `json:"createdDateUTC"`
		} `json:"workingOrderData"`
	} `json:"workingOrders"`
}

type dealReferenceResponse struct {
	DealReference string `json:"dealReference"`
}

// DealConfirmation is the broker's verdict on a submitted deal.
type DealConfirmation struct {
	DealID        string `json:"dealId"`
	DealReference string `json:"dealReference"`
	DealStatus    string `json:"dealStatus"` // ACCEPTED or REJECTED
	Status        string `json:"status"`
	Reason        string `json:"reason"`
}

// Accepted reports whether the broker accepted the deal.
func (c DealConfirmation) Accepted() bool {
	return c.DealStatus == "ACCEPTED"
}

type activityResponse struct {
	Activities []struct {
		Date    string `json:"date"`
		Type    string `json:"type"`
		Status  string `json:"status"`
		Details struct {
			DealReference string `json:"dealReference"`
			Epic          string `json:"epic"` // some API versions nest it under actions
		} `json:"details"`
		Epic string `json:"epic"`
	} `json:"activities"`
}
