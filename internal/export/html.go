package export

import (
	"html/template"
	"io"
)

type htmlPage struct {
	Stats     Stats
	Average   string
	Cards     []Card
	Highlight string
}

var cardsTemplate = template.Must(template.New("cards").Parse(`<div class="stats">
  <span id="total-count">{{.Stats.Total}}</span>
  <span id="avg-price">{{.Average}}</span>
  <span id="stabilized-count">{{.Stats.Stabilized}}</span>
</div>
<div id="listings-container">
{{- if not .Cards}}
  <div class="listing-card empty-state-card">
    <div class="empty-state-title">` + EmptyTitle + `</div>
    <div class="empty-state-subtitle">` + EmptySubtitle + `</div>
  </div>
{{- end}}
{{- range .Cards}}
  <div class="listing-card{{if .Stabilized}} stabilized{{end}}{{if and .ID (eq .ID $.Highlight)}} highlighted{{end}}" data-listing-id="{{.ID}}">
    <div class="listing-header"><h2>{{.Address}}</h2><span class="price">{{.Price}}</span></div>
    <div class="listing-details">
      <p class="specs">{{.Specs}}</p>
      <p class="unit">Unit: {{.Unit}}</p>
      <p class="off-market">Off market: {{.OffMarket}}</p>
      <p class="building">Building: {{.Building}}</p>
    </div>
    <div class="amenities">
      {{- if .Laundry}}<span class="amenity active">{{.Laundry}}</span>{{end}}
      <span class="amenity{{if .Pets}} active{{end}}">Pets allowed</span>
      <span class="amenity{{if .Outdoor}} active{{end}}">Outdoor space</span>
    </div>
    {{- if .Stabilized}}
    <div class="stabilized-info">
      <p><strong>Likely Rent Stabilized</strong> ({{.Confidence}} confidence)</p>
      <p class="evidence">{{.Evidence}}</p>
    </div>
    {{- end}}
    <div class="listing-footer">
      <p>Listed by: {{.Agent}}<br>Email: {{.Email}}<br>Phone: {{.Phone}}</p>
      {{- if .URL}}<a href="{{.URL}}" class="view-button" target="_blank">View</a>{{end}}
    </div>
  </div>
{{- end}}
</div>
`))

func writeHTML(w io.Writer, view View, opts WriteOptions) error {
	return cardsTemplate.Execute(w, htmlPage{
		Stats:     view.Stats,
		Average:   FormatPrice(view.Stats.AveragePrice),
		Cards:     Cards(view),
		Highlight: opts.Highlight,
	})
}
