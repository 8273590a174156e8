package dispatch

import (
	"tariff-bench/internal/linprog"
	"tariff-bench/internal/model"
)

// TradePair is one directed trading link between nodes. Node indices are
// building positions; the hub topology adds a virtual node with index equal
// to the number of buildings.
type TradePair struct {
	From int
	To   int
}

// TradePairs returns the directed links permitted by the topology for a
// community of n buildings. An empty result degenerates the model to
// grid-only dispatch, which must match the trading-disabled formulation
// exactly.
func TradePairs(n int, topo model.Topology) []TradePair {
	var pairs []TradePair
	switch topo {
	case model.TopologyFull:
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				if i != j {
					pairs = append(pairs, TradePair{From: i, To: j})
				}
			}
		}
	case model.TopologyLocal:
		// Ring neighbours in the fixed building ordering. Two buildings
		// share a single edge; fewer than two trade with nobody.
		if n == 2 {
			pairs = append(pairs, TradePair{From: 0, To: 1}, TradePair{From: 1, To: 0})
		} else if n >= 3 {
			for i := 0; i < n; i++ {
				j := (i + 1) % n
				pairs = append(pairs, TradePair{From: i, To: j}, TradePair{From: j, To: i})
			}
		}
	case model.TopologyHub:
		hub := n
		for i := 0; i < n; i++ {
			pairs = append(pairs, TradePair{From: i, To: hub}, TradePair{From: hub, To: i})
		}
	}
	return pairs
}

// tradeVars holds the flow variables for all permitted pairs.
// flows[p][t] is the sent (pre-loss) energy on pair p in interval t.
type tradeVars struct {
	pairs []TradePair
	flows [][]int
	hub   int // hub node index, -1 when the topology has no hub
}

// addTrading registers one non-negative flow variable per permitted pair
// and interval. Trades carry no objective coefficient: settlement at the
// community price is zero-sum within the community and is applied during
// per-building cost extraction (see settlement).
func addTrading(p *linprog.Problem, n, horizon int, cfg model.TradingConfig) *tradeVars {
	if !cfg.Enabled {
		return nil
	}
	pairs := TradePairs(n, cfg.Topology)
	if len(pairs) == 0 {
		return nil
	}

	tv := &tradeVars{pairs: pairs, flows: make([][]int, len(pairs)), hub: -1}
	if cfg.Topology == model.TopologyHub {
		tv.hub = n
	}
	for pi := range pairs {
		tv.flows[pi] = make([]int, horizon)
		for t := 0; t < horizon; t++ {
			tv.flows[pi][t] = p.AddVar(0, infinity, 0)
		}
	}
	return tv
}

// addHubBalance forces the virtual hub to net to zero each interval:
// delivered inflow equals sent outflow, with the transfer loss applied on
// each leg at receipt.
func (tv *tradeVars) addHubBalance(p *linprog.Problem, horizon int, efficiency float64) {
	if tv == nil || tv.hub < 0 {
		return
	}
	for t := 0; t < horizon; t++ {
		var terms []linprog.Term
		for pi, pair := range tv.pairs {
			if pair.To == tv.hub {
				terms = append(terms, linprog.Term{Var: tv.flows[pi][t], Coef: efficiency})
			} else if pair.From == tv.hub {
				terms = append(terms, linprog.Term{Var: tv.flows[pi][t], Coef: -1})
			}
		}
		p.AddRow(linprog.EQ, 0, terms...)
	}
}

// outFlows and inFlows return the pair indices on which node i sends or
// receives.
func (tv *tradeVars) outFlows(i int) []int {
	var out []int
	for pi, pair := range tv.pairs {
		if pair.From == i {
			out = append(out, pi)
		}
	}
	return out
}

func (tv *tradeVars) inFlows(i int) []int {
	var in []int
	for pi, pair := range tv.pairs {
		if pair.To == i {
			in = append(in, pi)
		}
	}
	return in
}

// settlement computes per-building community cashflows from the solved
// flows. Settlement is symmetric at the community price on the delivered
// (meter) quantity: for building-to-building trades the receiver meter, for
// hub trades the hub meter. Charged and credited totals are equal, so the
// community objective is unaffected; settlement only redistributes cost.
func (tv *tradeVars) settlement(x []float64, communityPrice []float64, n, horizon int, efficiency float64) (credit, charge [][]float64) {
	credit = make([][]float64, n)
	charge = make([][]float64, n)
	for i := 0; i < n; i++ {
		credit[i] = make([]float64, horizon)
		charge[i] = make([]float64, horizon)
	}
	if tv == nil {
		return credit, charge
	}
	for pi, pair := range tv.pairs {
		for t := 0; t < horizon; t++ {
			sent := x[tv.flows[pi][t]]
			if sent <= 0 {
				continue
			}
			price := communityPrice[t]
			switch {
			case pair.To == tv.hub:
				// Seller paid for what reaches the hub meter.
				credit[pair.From][t] += price * efficiency * sent
			case pair.From == tv.hub:
				// Buyer pays for what leaves the hub meter.
				charge[pair.To][t] += price * sent
			default:
				delivered := efficiency * sent
				credit[pair.From][t] += price * delivered
				charge[pair.To][t] += price * delivered
			}
		}
	}
	return credit, charge
}
