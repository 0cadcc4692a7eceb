package domain

import (
	"errors"
	"strings"
)

var dayLabels = map[int]string{
	1: "в понедельник",
	2: "во вторник",
	3: "в среду",
	4: "в четверг",
	5: "в пятницу",
	6: "в субботу",
	7: "в воскресенье",
}

// DayLabel renvoie la tournure "tel jour" pour un jour ISO (1 = lundi). Vide hors 1..7.
func DayLabel(isoWeekday int) string {
	return dayLabels[isoWeekday]
}

type Window string

const (
	WindowToday    Window = "today"
	WindowTomorrow Window = "tomorrow"
	WindowThisWeek Window = "this_week"
	WindowNextWeek Window = "next_week"
)

var ErrInvalidWindow = errors.New("invalid window")

func Windows() []Window {
	return []Window{WindowToday, WindowTomorrow, WindowThisWeek, WindowNextWeek}
}

// ParseWindow accepte aussi les variantes à tiret et l'orthographe historique "tommorow".
func ParseWindow(s string) (Window, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "-", "_")
	switch s {
	case "today":
		return WindowToday, nil
	case "tomorrow", "tommorow":
		return WindowTomorrow, nil
	case "this_week", "week":
		return WindowThisWeek, nil
	case "next_week":
		return WindowNextWeek, nil
	}
	return "", ErrInvalidWindow
}
