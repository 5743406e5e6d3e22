package diagnosis

import "github.com/jwalitptl/care-portal/internal/model"

// Remedies returns a copy of the built-in remedy table.
func Remedies() []model.Remedy {
	out := make([]model.Remedy, len(remedies))
	for i, r := range remedies {
		r.Keywords = append([]string(nil), r.Keywords...)
		out[i] = r
	}
	return out
}

var remedies = []model.Remedy{
	{
		Name:        "Aconitum napellus",
		Keywords:    []string{"fever", "anxiety", "sudden onset", "restlessness", "thirst", "cold"},
		Description: "Sudden complaints after exposure to cold wind, with fear and restlessness.",
		Potency:     "30C",
	},
	{
		Name:        "Arnica montana",
		Keywords:    []string{"bruise", "injury", "soreness", "trauma", "muscle pain", "swelling"},
		Description: "Bruising and soreness after injury or overexertion.",
		Potency:     "30C",
	},
	{
		Name:        "Arsenicum album",
		Keywords:    []string{"anxiety", "restlessness", "burning", "diarrhea", "vomiting", "weakness", "thirst"},
		Description: "Burning pains with restlessness, chilliness and exhaustion.",
		Potency:     "30C",
	},
	{
		Name:        "Belladonna",
		Keywords:    []string{"fever", "headache", "red face", "throbbing", "sore throat", "sudden onset"},
		Description: "Sudden high fever with a hot red face and throbbing pain.",
		Potency:     "200C",
	},
	{
		Name:        "Bryonia alba",
		Keywords:    []string{"dry cough", "headache", "thirst", "irritability", "joint pain", "constipation"},
		Description: "Complaints worse from any motion, with great thirst.",
		Potency:     "30C",
	},
	{
		Name:        "Chamomilla",
		Keywords:    []string{"irritability", "teething", "colic", "earache", "sleeplessness"},
		Description: "Extreme irritability and oversensitivity to pain.",
		Potency:     "30C",
	},
	{
		Name:        "Gelsemium",
		Keywords:    []string{"fatigue", "weakness", "chills", "headache", "anxiety", "drowsiness"},
		Description: "Heavy weakness and trembling, often with flu-like symptoms.",
		Potency:     "30C",
	},
	{
		Name:        "Nux vomica",
		Keywords:    []string{"indigestion", "nausea", "constipation", "irritability", "hangover", "headache"},
		Description: "Digestive upsets from rich food, stimulants or overwork.",
		Potency:     "30C",
	},
	{
		Name:        "Pulsatilla",
		Keywords:    []string{"cough", "nasal congestion", "weepy", "earache", "indigestion", "thirstless"},
		Description: "Changeable symptoms with thick mild discharges and a wish for company.",
		Potency:     "30C",
	},
	{
		Name:        "Rhus toxicodendron",
		Keywords:    []string{"joint pain", "stiffness", "restlessness", "rash", "itching", "back pain"},
		Description: "Stiffness that eases with continued motion.",
		Potency:     "30C",
	},
}
