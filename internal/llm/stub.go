package llm

import (
	"context"
	"fmt"
)

// StubClient returns canned HTML so the pipeline runs without an API key.
type StubClient struct{}

func (StubClient) Complete(_ context.Context, req Request) (string, error) {
	switch req.Purpose {
	case PurposeOneLine:
		return fmt.Sprintf("Kernaussage zu %s; Wirkung sichtbar → nächster Schritt festlegen.", req.Section), nil
	case PurposeRepair:
		return "<p>Überarbeiteter Abschnitt.</p>", nil
	}
	switch req.Section {
	case "quick_wins":
		return "<ul>" +
			"<li><strong>Angebotsvorlagen mit KI</strong>: Ersparnis: 4 Stunden pro Monat</li>" +
			"<li><strong>E-Mail-Entwürfe</strong>: 3 h/Monat</li>" +
			"<li><strong>Protokolle zusammenfassen</strong>: 2–4 h/Monat</li>" +
			"<li><strong>FAQ-Assistent</strong>: 2 h/Monat</li>" +
			"</ul>", nil
	case "next_actions":
		return "<ol><li>KI-Verantwortliche benennen.</li><li>Datenschutz-Check für Pilot durchführen.</li></ol>", nil
	}
	return fmt.Sprintf("<p>Automatisch erzeugter Abschnitt <strong>%s</strong> für Ihr Unternehmen. "+
		"Die Inhalte basieren auf Ihren Angaben im Fragebogen und den berechneten Kennzahlen.</p>"+
		"<ul><li>Ausgangslage bewerten</li><li>Maßnahmen priorisieren</li></ul>", req.Section), nil
}
