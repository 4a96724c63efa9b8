package game

// SeatView is one seat's projection: identity, stack, and betting state
// visible to any viewer, plus hole cards when the viewer is entitled to see
// them (own seat, or any unfolded seat at showdown, per invariant 6).
type SeatView struct {
	SeatIndex        int    `json:"seatIndex"`
	PlayerID         string `json:"playerId"`
	DisplayName      string `json:"displayName"`
	Stack            int    `json:"stack"`
	Folded           bool   `json:"folded"`
	IsAllIn          bool   `json:"isAllIn"`
	IsConnected      bool   `json:"isConnected"`
	CurrentRoundBet  int    `json:"currentRoundBet"`
	TotalBetThisHand int    `json:"totalBetThisHand"`
	HoleCards        string `json:"holeCards,omitempty"`
}

// ViewerState is the per-viewer projection of a table (§4.3/§4.7): a pure
// function of (state, viewerId). It is the gameState payload for a seated
// player and, once sanitized by omitting HoleCards for every seat but the
// viewer's own, the spectatorState payload.
type ViewerState struct {
	TableID         string     `json:"tableId"`
	Variant         string     `json:"variant"`
	Stage           string     `json:"stage"`
	Board           string     `json:"board,omitempty"`
	Seats           []SeatView `json:"seats"`
	DealerIndex     int        `json:"dealerIndex"`
	ActiveSeatIndex int        `json:"activeSeatIndex"`
	CurrentHighBet  int        `json:"currentHighBet"`
	HandNumber      uint64     `json:"handNumber"`
	Winners         []int      `json:"winners,omitempty"`
}

// ProjectFor builds the viewer-specific projection of table id for viewerID.
// viewerID may be empty, which yields the sanitized spectator projection:
// every seat's hole cards are omitted except during showdown, when every
// unfolded seat's cards are revealed to everyone (invariant 6).
func (e *TableEngine) ProjectFor(id, viewerID string) (ViewerState, error) {
	ts, err := e.get(id)
	if err != nil {
		return ViewerState{}, err
	}
	return projectTable(ts, viewerID), nil
}

func projectTable(ts *TableState, viewerID string) ViewerState {
	out := ViewerState{
		TableID:         ts.ID,
		Variant:         string(ts.Variant),
		Stage:           ts.Stage.String(),
		Seats:           make([]SeatView, 0, len(ts.Seats)),
		DealerIndex:     ts.DealerIndex,
		ActiveSeatIndex: ts.ActiveSeatIndex,
		CurrentHighBet:  ts.Betting.CurrentHighBet,
		HandNumber:      ts.HandNumber,
		Winners:         ts.Winners,
	}
	if ts.Board != 0 {
		out.Board = ts.Board.String()
	}
	showdown := ts.Stage == Showdown
	for _, s := range ts.Seats {
		if s == nil {
			continue
		}
		out.Seats = append(out.Seats, projectSeat(s, viewerID, showdown))
	}
	return out
}

func projectSeat(s *Seat, viewerID string, showdown bool) SeatView {
	v := SeatView{
		SeatIndex:        s.SeatIndex,
		PlayerID:         s.PlayerID,
		DisplayName:      s.DisplayName,
		Stack:            s.Stack,
		Folded:           s.Folded,
		IsAllIn:          s.IsAllIn,
		IsConnected:      s.IsConnected,
		CurrentRoundBet:  s.CurrentRoundBet,
		TotalBetThisHand: s.TotalBetThisHand,
	}
	reveal := s.HoleCards != 0 && (s.PlayerID == viewerID || (showdown && !s.Folded))
	if reveal {
		v.HoleCards = s.HoleCards.String()
	}
	return v
}
