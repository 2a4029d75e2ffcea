package i18n

// tables holds the static bilingual string tables for the widget. The English
// table is the default and must contain every key; the Malayalam table may be
// sparse and falls back per key.
var tables = map[string]map[string]string{
	"en": {
		// Widget chrome
		"weather_title": "Weather Dashboard",
		"temperature":   "Temperature",
		"humidity":      "Humidity",
		"wind_speed":    "Wind (km/h)",
		"precipitation": "Rain (mm)",
		"last_updated":  "Last Updated",
		"refresh":       "Refresh",
		"loading":       "Loading weather data...",
		"error":         "Error Loading Weather",
		"your_location": "Your Farm Location",

		// Forecast
		"forecast_title":  "3-Day Forecast",
		"today":           "Today",
		"tomorrow":        "Tomorrow",
		"day_after":       "Day After",
		"total_rainfall":  "Total Rainfall",
		"avg_temperature": "Avg Temperature",
		"next_3_days":     "next 3 days",

		// Alerts
		"severe_weather_alert": "⚠️ Severe Weather Alert!",
		"heavy_rain_alert":     "Heavy Rainfall Expected",
		"high_temp_alert":      "High Temperature Warning",
		"strong_wind_alert":    "Strong Wind Warning",

		// Demo mode
		"demo_mode":          "Demo Mode (For Judges)",
		"trigger_test_alert": "Trigger Test Alert",
		"test_alert_sent":    "Test Alert Sent Successfully!",

		// Telegram
		"link_telegram":         "Link Telegram",
		"linked":                "Connected",
		"not_linked":            "Not Connected",
		"link_success":          "✅ Telegram linked successfully!",
		"link_code_failed":      "Failed to generate link code",
		"telegram_instructions": `Search "@harvestsyncbot" on Telegram, send /start, then your alerts will be sent directly to your phone!`,

		// Common
		"close":  "Close",
		"save":   "Save",
		"cancel": "Cancel",
	},
	"ml": {
		"weather_title": "കാലാവസ്ഥ ഡാഷ്ബോർഡ്",
		"humidity":      "ആർദ്രത",
		"wind_speed":    "കാറ്റ് (km/h)",
		"precipitation": "മഴ (mm)",
		"last_updated":  "അവസാനം അപ്ഡേറ്റ് ചെയ്തത്",
		"refresh":       "പുതുക്കുക",
		"loading":       "കാലാവസ്ഥ വിവരങ്ങൾ ലോഡ് ചെയ്യുന്നു...",
		"error":         "കാലാവസ്ഥ ലോഡ് ചെയ്യുന്നതിൽ പിശക്",
		"your_location": "നിങ്ങളുടെ ഫാം ലൊക്കേഷൻ",

		"forecast_title":  "3-ദിവസ പ്രവചനം",
		"today":           "ഇന്ന്",
		"tomorrow":        "നാളെ",
		"day_after":       "മറ്റന്നാൾ",
		"total_rainfall":  "ആകെ മഴ",
		"avg_temperature": "ശരാശരി താപനില",
		"next_3_days":     "അടുത്ത 3 ദിവസം",

		"severe_weather_alert": "⚠️ ഗുരുതര കാലാവസ്ഥാ മുന്നറിയിപ്പ്!",
		"heavy_rain_alert":     "കനത്ത മഴ പ്രതീക്ഷിക്കുന്നു",
		"high_temp_alert":      "ഉയർന്ന താപനില മുന്നറിയിപ്പ്",
		"strong_wind_alert":    "ശക്തമായ കാറ്റ് മുന്നറിയിപ്പ്",

		"demo_mode":          "ഡെമോ മോഡ് (വിധികർത്താക്കൾക്കായി)",
		"trigger_test_alert": "ടെസ്റ്റ് അലേർട്ട് അയയ്ക്കുക",
		"test_alert_sent":    "ടെസ്റ്റ് അലേർട്ട് വിജയകരമായി അയച്ചു!",

		"link_telegram":         "ടെലിഗ്രാം ലിങ്ക് ചെയ്യുക",
		"linked":                "കണക്റ്റ് ചെയ്തു",
		"not_linked":            "കണക്റ്റ് ചെയ്തിട്ടില്ല",
		"telegram_instructions": `ടെലിഗ്രാമിൽ "@harvestsyncbot" തിരയുക, /start അയയ്ക്കുക, നിങ്ങളുടെ അലേർട്ടുകൾ നേരിട്ട് ഫോണിലേക്ക് ലഭിക്കും!`,

		"close":  "അടയ്ക്കുക",
		"save":   "സേവ് ചെയ്യുക",
		"cancel": "റദ്ദാക്കുക",
	},
}
