package models

import (
	"strings"
	"time"
)

var zodiacSigns = []string{
	"aries", "taurus", "gemini", "cancer", "leo", "virgo",
	"libra", "scorpio", "sagittarius", "capricorn", "aquarius", "pisces",
}

// Horoscope is one day of zodiac content for one sign. Rows are written by an
// editorial import job and read via a cache-backed public endpoint.
type Horoscope struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Sign      string    `gorm:"type:varchar(20);not null;index:ux_horoscopes_sign_date,unique,priority:1" json:"sign"`
	ForDate   string    `gorm:"type:varchar(10);not null;index:ux_horoscopes_sign_date,unique,priority:2" json:"for_date"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	LuckyTime string    `gorm:"type:varchar(50)" json:"lucky_time"`
	Mood      string    `gorm:"type:varchar(50)" json:"mood"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsValidZodiacSign reports whether the given sign is one of the twelve signs.
func IsValidZodiacSign(sign string) bool {
	s := strings.ToLower(strings.TrimSpace(sign))
	for _, z := range zodiacSigns {
		if z == s {
			return true
		}
	}
	return false
}
