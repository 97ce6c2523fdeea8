package report

const reportHTML = `<!DOCTYPE html>
<html lang="fr">
<head>
<meta charset="UTF-8">
<title>Rapport - {{.SiteName}} - {{.PeriodLabel}}</title>
<link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/bootstrap@5.1.3/dist/css/bootstrap.min.css">
<style>
body { font-family: 'Segoe UI', Roboto, Helvetica, Arial, sans-serif; padding: 2rem; background: #f8f9fa; color: #212529; }
.section-title { border-left: 5px solid #0d6efd; padding-left: 1rem; margin-bottom: 1.5rem; font-weight: 700; text-transform: uppercase; }
@media print { .page-break { page-break-inside: avoid; } body { padding: 0; background: white; } }
</style>
</head>
<body>
<div class="container">
<header class="mb-4 text-center">
<h1>RAPPORT DE TRAFIC</h1>
<h2 class="h5 text-muted text-uppercase">{{.SiteName}}</h2>
<p class="badge bg-light text-dark border">Période : {{.PeriodLabel}}</p>
<p class="small text-muted">Généré le {{.GeneratedAt}}</p>
</header>

<section class="mb-5 page-break">
<h3 class="section-title">Synthèse des Résultats</h3>
{{- if .Pedestrian}}
{{- with .Pedestrian}}
<table class="table table-bordered table-sm" id="pedestrian">
<tbody>
<tr><th>Total</th><td class="text-end">{{count .Total}}</td></tr>
<tr><th>TMJ</th><td class="text-end fw-bold">{{count .PerDay}}</td></tr>
<tr><th>TMJ JO</th><td class="text-end">{{count .PerWorkday}}</td></tr>
<tr><th>TMJ WE</th><td class="text-end">{{count .PerWeekend}}</td></tr>
<tr><th>Jour de pointe</th><td class="text-end">{{.PeakDay}} ({{count .PeakCount}})</td></tr>
<tr><th>Jour le plus fréquenté</th><td class="text-end">{{.BusiestWeekday}}</td></tr>
</tbody>
</table>
{{- end}}
{{- else if .Synthesis.Rows}}
<table class="table table-bordered table-hover table-sm" id="synthesis">
<thead class="table-light">
<tr>
<th rowspan="2">Catégorie</th>
<th colspan="5" class="text-center">{{.Synthesis.Direction1}}</th>
<th colspan="5" class="text-center">{{.Synthesis.Direction2}}</th>
</tr>
<tr class="text-center small text-muted">
<th>TOTAL</th><th>TMJ</th><th>TMJ JO</th><th>TMJ WE</th><th>VT</th>
<th>TOTAL</th><th>TMJ</th><th>TMJ JO</th><th>TMJ WE</th><th>VT</th>
</tr>
</thead>
<tbody>
{{- range .Synthesis.Rows}}
<tr><td class="fw-bold">{{.Label}}</td>
{{- range .Direction1.Values}}<td class="text-end">{{value .}}</td>{{end}}
{{- range .Direction2.Values}}<td class="text-end">{{value .}}</td>{{end}}
</tr>
{{- end}}
</tbody>
</table>
{{- else}}
<p class="text-muted">Pas de données pour la table.</p>
{{- end}}
</section>

{{- if .Modal.All}}
<section class="mb-5 page-break">
<h3 class="section-title">Répartition Modale</h3>
<table class="table table-sm" id="modal">
<thead><tr><th>Catégorie</th><th class="text-end">Volume</th><th class="text-end">Part</th></tr></thead>
<tbody>
{{- range .Modal.All}}
<tr><td>{{.Label}}</td><td class="text-end">{{volume .Volume}}</td><td class="text-end">{{percent .Percent}}</td></tr>
{{- end}}
</tbody>
</table>
{{- if .Modal.Active}}
<table class="table table-sm" id="active">
<tbody>
{{- range .Modal.Active}}
<tr><td>{{.Label}}</td><td class="text-end">{{volume .Volume}}</td><td class="text-end">{{percent .Percent}}</td></tr>
{{- end}}
</tbody>
</table>
{{- end}}
</section>
{{- end}}

<section class="mt-5 page-break">
<h3 class="section-title">Lexique</h3>
<ul class="list-unstyled small">
<li><strong>TMJ</strong> : Trafic Moyen Journalier (Moyenne quotidienne).</li>
<li><strong>TMJ JO</strong> : Moyenne des Jours Ouvrés (Lun-Ven).</li>
<li><strong>TMJ WE</strong> : Moyenne des Week-ends (Sam-Dim).</li>
<li><strong>VL</strong> : Véhicules Légers (Voitures &lt; 3.5t).</li>
<li><strong>PL</strong> : Poids Lourds (&gt; 3.5t).</li>
<li><strong>VT</strong> : Vitesse Moyenne (si disponible).</li>
</ul>
</section>
</div>
</body>
</html>
`
