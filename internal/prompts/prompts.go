package prompts

import (
	"encoding/json"
	"fmt"
	"strings"

	"renoquote/internal/renovation"
)

// Quebec sales taxes applied on top of materials and labour.
const (
	GSTRate = 0.05
	QSTRate = 0.09975
)

// CombinedTaxRate is GST + QST.
const CombinedTaxRate = GSTRate + QSTRate

const rateTable = `Taux horaires Québec 2024 (main-d'œuvre qualifiée, CCQ):
- Électricien: 85-110 $/h
- Plombier: 90-120 $/h
- Menuisier / charpentier: 65-85 $/h
- Carreleur: 60-80 $/h
- Peintre: 45-60 $/h
- Plâtrier: 55-70 $/h
- Manœuvre: 35-45 $/h
Prix matériaux indicatifs:
- Céramique / porcelaine: 4-15 $/pi²
- Plancher bois franc: 6-14 $/pi²
- Plancher vinyle: 3-7 $/pi²
- Gypse posé: 2-4 $/pi²
- Peinture: 45-80 $/gallon
- Armoires de cuisine: 250-600 $/pied linéaire
- Comptoir quartz: 60-120 $/pi²`

const estimationSystemPrompt = "Tu es un estimateur en rénovation résidentielle au Québec. Tu chiffres en dollars canadiens avec les prix du marché 2024-2025, la TPS (5 %) et la TVQ (9,975 %), soit 14,975 % combinés, et les taux horaires du Québec. Tu réponds uniquement en JSON valide, sans texte autour."

const estimationUserTemplate = `Estime le coût de ce projet de rénovation.
Retourne JSON {"totalCost":{"min":0,"max":0,"average":0},"breakdown":[{"category":"","cost":0,"percentage":0,"details":["..."]}],"timeline":"","confidence":"","recommendations":["..."]}.
Exigences:
- 4 à 5 catégories: Matériaux, Main-d'œuvre, Permis et taxes, Finitions, Imprévus.
- La somme des "percentage" doit être exactement 100.
- "cost" de chaque catégorie en CAD, cohérent avec "average".
- Inclure la TPS + TVQ (14,975 %%) dans le total.
- "timeline" en semaines, par exemple "4-6 semaines".
- 3 à 5 recommandations concrètes.
%s
Données du projet:
%s`

const analysisSystemPrompt = "Tu es un expert en métré et en estimation de rénovation au Québec. Tu analyses une photo de pièce et tu réponds uniquement en JSON valide."

const analysisUserTemplate = `Analyse cette photo de %s pour une rénovation de style %s.
Mesure la pièce en pieds en te basant uniquement sur des références visibles:
- une porte standard mesure environ 2 m (6'8") de haut;
- une prise électrique est à environ 30 cm du plancher;
- une plinthe fait environ 10 cm de haut.
Liste les matériaux existants et ceux à acheter, la main-d'œuvre par métier et le niveau de complexité.

%s

Retourne JSON:
{"dimensions":{"length":0,"width":0,"height":0,"area":0,"confidence":0},
 "materials":{"existing":[{"material":"","quantity":0,"unit":""}],"needed":[{"material":"","quantity":0,"unit":"","unitPrice":0,"totalPrice":0}]},
 "labor":[{"specialty":"","hours":0,"hourlyRate":0,"totalCost":0,"description":""}],
 "complexity":{"level":"Simple|Modéré|Complexe|Expert","factors":["..."],"multiplier":1.0},
 "totalCost":{"materials":0,"labor":0,"taxes":0,"contingency":0,"total":0}}
"confidence" est un entier de 0 à 100. "multiplier" est entre 1.0 et 2.0. "taxes" = 14,975 %% de matériaux + main-d'œuvre.`

const visionSystemPrompt = "Tu es designer d'intérieur au Québec. Tu décris précisément comment transformer une pièce existante dans le style demandé."

// TransformationPrompt builds the image generation prompt for one room.
func TransformationPrompt(room renovation.Room, style renovation.Style, custom string, dims *renovation.Dimensions) string {
	rp := room.Describe()
	sp := style.Describe()

	var b strings.Builder
	fmt.Fprintf(&b, "Photo d'intérieur photoréaliste d'une %s rénovée dans un style %s: %s.", rp.Label, strings.ToLower(sp.Label), sp.Description)
	b.WriteString(" Conserver la disposition, les fenêtres et les proportions de la pièce d'origine.")
	if sentence := FormatDimensions(dims); sentence != "" {
		b.WriteString(" ")
		b.WriteString(sentence)
	}
	b.WriteString(" Éclairage naturel, qualité magazine de décoration, aucune personne, aucun texte.")
	if custom = strings.TrimSpace(custom); custom != "" {
		b.WriteString(" Instructions du client: ")
		b.WriteString(custom)
	}
	return b.String()
}

// VisionPrompts builds the system/user pair used when the provider can only describe the
// transformation instead of drawing it.
func VisionPrompts(room renovation.Room, style renovation.Style, custom string, dims *renovation.Dimensions) (string, string) {
	user := TransformationPrompt(room, style, custom, dims) +
		"\n\nSi tu ne peux pas produire d'image, décris en 5 à 8 phrases les changements à apporter à cette photo: revêtements, couleurs, mobilier, éclairage et rangement."
	return visionSystemPrompt, user
}

// FormatDimensions renders room measurements as a prompt sentence.
func FormatDimensions(d *renovation.Dimensions) string {
	if d == nil || (d.Width <= 0 && d.Length <= 0) {
		return ""
	}
	sentence := fmt.Sprintf("La pièce mesure %s pi x %s pi", formatFeet(d.Length), formatFeet(d.Width))
	if d.Height > 0 {
		sentence += fmt.Sprintf(", plafond de %s pi", formatFeet(d.Height))
	}
	return sentence + "."
}

func formatFeet(v float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.1f", v), "0"), ".")
}

// BuildAnalysisPrompts composes the system + user prompt pair for photo cost analysis.
func BuildAnalysisPrompts(room renovation.Room, style renovation.Style) (string, string) {
	user := fmt.Sprintf(analysisUserTemplate, room.Describe().Label, strings.ToLower(style.Describe().Label), rateTable)
	return analysisSystemPrompt, user
}

// BuildEstimationPrompts composes the system + user prompt pair for cost estimation.
func BuildEstimationPrompts(req renovation.EstimateRequest) (string, string, error) {
	payload, err := buildEstimationPayload(req)
	if err != nil {
		return "", "", err
	}
	return estimationSystemPrompt, fmt.Sprintf(estimationUserTemplate, rateTable, payload), nil
}

type roomEntry struct {
	Tag        string                 `json:"tag"`
	Label      string                 `json:"label"`
	Dimensions *renovation.Dimensions `json:"dimensions,omitempty"`
}

func buildEstimationPayload(req renovation.EstimateRequest) (string, error) {
	rooms := make([]roomEntry, 0, len(req.Rooms))
	for _, r := range req.Rooms {
		entry := roomEntry{Tag: string(r), Label: r.Describe().Label}
		if d, ok := req.RoomDimensions[r]; ok {
			entry.Dimensions = &d
		}
		rooms = append(rooms, entry)
	}
	sp := req.Style.Describe()

	payload, err := json.Marshal(struct {
		Rooms            []roomEntry               `json:"rooms"`
		Style            string                    `json:"style"`
		StyleDescription string                    `json:"style_description"`
		Goals            string                    `json:"goals,omitempty"`
		PhotoCount       int                       `json:"photo_count,omitempty"`
		House            *renovation.HouseInfo     `json:"house,omitempty"`
		PhotoAnalysis    *renovation.PhotoAnalysis `json:"photo_analysis,omitempty"`
	}{
		Rooms:            rooms,
		Style:            sp.Label,
		StyleDescription: sp.Description,
		Goals:            strings.TrimSpace(req.Goals),
		PhotoCount:       req.PhotoCount,
		House:            req.House,
		PhotoAnalysis:    req.Analysis,
	})
	if err != nil {
		return "", fmt.Errorf("marshal estimation payload: %w", err)
	}
	return string(payload), nil
}
