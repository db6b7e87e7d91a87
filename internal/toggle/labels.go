package toggle

import "fmt"

// OffClass marks a button whose device is off.
const OffClass = "off"

// Labels holds the texts a controller renders.
type Labels struct {
	TurnOn  string // button text while the device is off
	TurnOff string // button text while the device is on
	On      string // status text
	Off     string

	// LogFormat takes the device name and the On/Off log word.
	LogFormat string
	LogOn     string
	LogOff    string
}

var English = Labels{
	TurnOn:    "Turn on",
	TurnOff:   "Turn off",
	On:        "On",
	Off:       "Off",
	LogFormat: "%s %s state",
	LogOn:     "on",
	LogOff:    "off",
}

var TraditionalChinese = Labels{
	TurnOn:    "開啟",
	TurnOff:   "關閉",
	On:        "開啟",
	Off:       "關閉",
	LogFormat: "%s 已%s",
	LogOn:     "開啟",
	LogOff:    "關閉",
}

// LabelsFor returns the label set for a language tag, English by default.
func LabelsFor(lang string) Labels {
	switch lang {
	case "zh-TW", "zh_TW", "zh-Hant", "zh":
		return TraditionalChinese
	default:
		return English
	}
}

func (l Labels) logLine(name string, on bool) string {
	word := l.LogOff
	if on {
		word = l.LogOn
	}

	return fmt.Sprintf(l.LogFormat, name, word)
}
