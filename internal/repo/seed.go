package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/chitedze/agroadvisor/internal/pkg/dbutil"
)

type seedEntry struct {
	query    string
	response string
}

// seedAdvice is the curated starter knowledge for the Lilongwe area.
var seedAdvice = []seedEntry{
	{
		query: "What crops grow best in Lilongwe?",
		response: "In Lilongwe, the following crops grow well:\n\n" +
			"🌽 Maize - The staple crop, plant in November-December\n" +
			"🥜 Groundnuts - Plant in December-January\n" +
			"🌱 Tobacco - Major cash crop, nursery in September\n" +
			"🫘 Beans - Plant in January-February\n" +
			"🍠 Sweet potatoes - Plant with first rains\n" +
			"🥔 Irish potatoes - Plant in cool months (May-July)\n\n" +
			"These crops are well-suited to Lilongwe's climate with rainfall of 800-1000mm annually.",
	},
	{
		query: "When is the best planting season in Lilongwe?",
		response: "The best planting seasons in Lilongwe are:\n\n" +
			"🌧️ Main season: November to December (start of rains)\n" +
			"☔ Late planting: January (for quick-maturing varieties)\n" +
			"🌤️ Winter crops: May to July (irrigation needed)\n\n" +
			"The rainy season typically runs from November to April, " +
			"with peak rainfall in January-February. Plant with the first good rains!",
	},
	{
		query: "How to manage pests in maize?",
		response: "Common maize pest management strategies for Lilongwe:\n\n" +
			"🐛 Fall Armyworm:\n" +
			"• Scout fields weekly\n" +
			"• Apply neem extract or approved pesticides\n" +
			"• Plant early to avoid peak infestations\n\n" +
			"🦗 Stalk borers:\n" +
			"• Remove and burn crop residues\n" +
			"• Use push-pull technology with Desmodium\n" +
			"• Apply Bt-based bio-pesticides\n\n" +
			"Prevention: Crop rotation, timely planting, and field hygiene are key!",
	},
	{
		query: "What are common soil types in Lilongwe and how to improve them?",
		response: "Lilongwe predominantly has Ferric Luvisols and Lixisols, which are moderately fertile but can be prone to nutrient leaching and acidity.\n\n" +
			"Soil Improvement Tips:\n" +
			"🌱 Organic Matter: Incorporate compost, animal manure, or green manures (e.g., cowpea, sunnhemp) to improve soil structure, water retention, and nutrient content.\n" +
			"💚 Liming: Test soil pH. If acidic (pH < 5.5), apply agricultural lime as recommended by soil tests to neutralize acidity and improve nutrient availability.\n" +
			"🔄 Crop Rotation: Rotate maize with legumes (beans, groundnuts, soyabeans) to improve soil fertility (nitrogen fixation) and break pest cycles.\n" +
			"🌳 Agroforestry: Integrate fertilizer trees like Faidherbia albida or Gliricidia sepium to improve soil fertility and provide fodder.\n" +
			"💧 Conservation Agriculture: Practice minimum tillage, retain crop residues on the soil surface, and use cover crops to reduce erosion and improve soil health.",
	},
	{
		query: "How to control Striga (witchweed) in maize fields in Lilongwe?",
		response: "Striga (Kaufiti) is a major parasitic weed affecting maize in Lilongwe. Control strategies include:\n\n" +
			"✋ Hand Weeding: Uproot Striga plants before they flower and set seed. This is labor-intensive but crucial.\n" +
			"🎯 Trap Cropping: Plant crops like Desmodium (silverleaf or greenleaf) as an intercrop. Desmodium stimulates Striga germination but inhibits its attachment to maize roots.\n" +
			"🌱 Tolerant/Resistant Varieties: Use maize varieties that are tolerant or resistant to Striga (e.g., IR-Maize varieties like MH30IR, MH39IR from Chitedze Research Station).\n" +
			"🔗 Push-Pull Strategy: Intercrop maize with Desmodium and plant Napier grass around the field. Desmodium 'pushes' away stemborers and 'pulls' Striga, while Napier grass 'pulls' stemborers.\n" +
			"💊 Herbicide Coated Seed: Use Striga-resistant maize seed coated with herbicide (e.g., Imazapyr Resistant Maize - IRM) where available and recommended.\n" +
			"💩 Manure Application: Apply well-decomposed animal manure to improve soil fertility, which can help reduce Striga infestation levels as healthier plants are more resilient.",
	},
	{
		query: "What are some common tomato diseases in Lilongwe and their management?",
		response: "Common tomato diseases in Lilongwe include:\n\n" +
			"🍅 Blight (early and late):\n" +
			"• Symptoms: Dark lesions on leaves, stems, and fruit. Late blight is very destructive.\n" +
			"• Management: Use resistant varieties, ensure good air circulation (spacing, pruning), avoid overhead irrigation, apply fungicides (e.g., Mancozeb, Copper-based) preventatively, and practice crop rotation.\n\n" +
			"🦠 Bacterial Wilt:\n" +
			"• Symptoms: Rapid wilting of plants, often starting from the top, while leaves remain green. Vascular discoloration in stems.\n" +
			"• Management: Very difficult to control. Use resistant varieties, avoid planting in infected soil for at least 3-4 years, improve soil drainage, and ensure tools are sanitized.\n\n" +
			"🍂 Fusarium Wilt:\n" +
			"• Symptoms: Yellowing and wilting of leaves, usually on one side of the plant or stem. Brown discoloration of vascular tissue.\n" +
			"• Management: Plant resistant varieties, practice crop rotation, improve soil drainage, and maintain soil pH around 6.0-7.0.",
	},
	{
		query: "Advice on irrigation methods for vegetable farming in Lilongwe during dry season?",
		response: "Effective irrigation during the dry season (May-October) is crucial for vegetables in Lilongwe:\n\n" +
			"💧 Drip Irrigation: Highly efficient, delivers water directly to the plant roots, minimizing water loss. Requires an initial investment but saves water and can improve yields.\n" +
			"🪴 Watering Cans: Suitable for small gardens or nurseries. Labor-intensive but allows precise watering.\n" +
			"🌊 Furrow Irrigation (Trench): If water is abundant and land is gently sloped. Water flows in small channels between crop rows. Can lead to waterlogging if not managed well.\n" +
			"⛲ Sprinkler Irrigation: Can be used but may lead to water loss through evaporation and can promote some fungal diseases if leaves stay wet for long. Best used early morning or late evening.\n\n" +
			"Key Considerations:\n" +
			"• Water Source: Ensure a reliable water source (borehole, dambo, river - check water rights).\n" +
			"• Mulching: Apply organic mulch (e.g., dry grass, maize stalks) around plants to conserve soil moisture and reduce water needs.\n" +
			"• Timing: Water early in the morning or late in the afternoon to reduce evaporation.",
	},
}

// SeedDefaults inserts the starter advice, updating entries whose curated
// response text changed. Safe to run on every startup.
func (r *AdviceRepo) SeedDefaults(ctx context.Context) error {
	logger := logutil.GetLogger(ctx)
	inserted, updated := 0, 0
	for _, entry := range seedAdvice {
		sqlStr, args := dbutil.Finalize(
			"SELECT id, response FROM advice WHERE LOWER(query) = LOWER(?)",
			[]interface{}{entry.query},
		)
		var id int64
		var response string
		err := r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&id, &response)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			insSQL, insArgs := dbutil.Finalize(
				"INSERT INTO advice (query, response, ctime) VALUES (?, ?, ?) ON CONFLICT (query) DO NOTHING",
				[]interface{}{entry.query, entry.response, time.Now().Unix()},
			)
			if _, err := r.db.ExecContext(ctx, insSQL, insArgs...); err != nil {
				return err
			}
			inserted++
		case err != nil:
			return err
		case response != entry.response:
			updSQL, updArgs := dbutil.Finalize(
				"UPDATE advice SET response = ? WHERE id = ?",
				[]interface{}{entry.response, id},
			)
			if _, err := r.db.ExecContext(ctx, updSQL, updArgs...); err != nil {
				return err
			}
			updated++
		}
	}
	logger.Info("advice seed synchronized", zap.Int("inserted", inserted), zap.Int("updated", updated))
	return nil
}
