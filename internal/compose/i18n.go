package compose

import "OutageNotifier/internal/domain"

type messageKey int

const (
	houseNumbersKey messageKey = iota
	detailsKey
)

var formats = map[domain.Language]map[messageKey]string{
	domain.LangEN: {
		houseNumbersKey: "House Numbers: %s",
		detailsKey:      "Details: %s",
	},
	domain.LangRU: {
		houseNumbersKey: "Дома: %s",
		detailsKey:      "Подробности: %s",
	},
	domain.LangHY: {
		houseNumbersKey: "Տներ՝ %s",
		detailsKey:      "Մանրամասներ՝ %s",
	},
}

var titles = map[domain.Language]map[domain.EventType][2]string{
	domain.LangEN: {
		domain.EventPower: {"Emergency power outage", "Scheduled power outage"},
		domain.EventWater: {"Emergency water outage", "Scheduled water outage"},
		domain.EventGas:   {"Emergency gas outage", "Scheduled gas outage"},
	},
	domain.LangRU: {
		domain.EventPower: {"Аварийное отключение электроэнергии", "Плановое отключение электроэнергии"},
		domain.EventWater: {"Аварийное отключение воды", "Плановое отключение воды"},
		domain.EventGas:   {"Аварийное отключение газа", "Плановое отключение газа"},
	},
	domain.LangHY: {
		domain.EventPower: {"Վթարային հոսանքազրկում", "Պլանային հոսանքազրկում"},
		domain.EventWater: {"Վթարային ջրանջատում", "Պլանային ջրանջատում"},
		domain.EventGas:   {"Վթարային գազանջատում", "Պլանային գազանջատում"},
	},
}

func tr(lang domain.Language, key messageKey) string {
	if byKey, ok := formats[lang]; ok {
		if f, ok := byKey[key]; ok {
			return f
		}
	}
	return formats[domain.LangEN][key]
}

func title(t domain.EventType, planned bool, lang domain.Language) string {
	byType, ok := titles[lang]
	if !ok {
		byType = titles[domain.LangEN]
	}
	pair := byType[t]
	if planned {
		return pair[1]
	}
	return pair[0]
}
