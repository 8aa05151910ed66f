package api

import "net/http"

type productEntry struct {
	Name       string   `json:"name"`
	Multiplier float64  `json:"multiplier"`
	Contracts  []string `json:"contracts"`
}

type contractsResponse struct {
	Products []productEntry `json:"products"`
	Traders  []string       `json:"traders"`
}

// ContractsHandler returns the products, contract series and traders offered
// for manual trade entry.
func (h *Handler) ContractsHandler(w http.ResponseWriter, r *http.Request) {
	resp := contractsResponse{
		Products: make([]productEntry, 0, len(h.catalogue.Products)),
		Traders:  h.catalogue.Traders,
	}
	if resp.Traders == nil {
		resp.Traders = []string{}
	}
	for _, p := range h.catalogue.Products {
		contracts := p.Contracts
		if contracts == nil {
			contracts = []string{}
		}
		resp.Products = append(resp.Products, productEntry{
			Name:       p.Name,
			Multiplier: p.Multiplier,
			Contracts:  contracts,
		})
	}
	h.setResponse(resp, w)
}
