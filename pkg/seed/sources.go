package seed

// Source is a downloadable newline separated word list.
type Source struct {
	URL      string `toml:"url" json:"url"`
	Language string `toml:"language" json:"language"`
}

const censorTextList = "https://raw.githubusercontent.com/censor-text/profanity-list/refs/heads/main/list/"

// DefaultSources are public multi-language profanity lists.
var DefaultSources = []Source{
	{URL: "https://raw.githubusercontent.com/coffee-and-fun/google-profanity-words/main/data/en.txt", Language: "en"},
	{URL: censorTextList + "en.txt", Language: "en"},
	{URL: censorTextList + "nl.txt", Language: "nl"},
	{URL: censorTextList + "de.txt", Language: "de"},
	{URL: censorTextList + "fr.txt", Language: "fr"},
	{URL: censorTextList + "es.txt", Language: "es"},
	{URL: censorTextList + "it.txt", Language: "it"},
	{URL: censorTextList + "pt.txt", Language: "pt"},
	{URL: censorTextList + "ru.txt", Language: "ru"},
	{URL: censorTextList + "uk.txt", Language: "uk"},
	{URL: censorTextList + "pl.txt", Language: "pl"},
	{URL: censorTextList + "cs.txt", Language: "cs"},
	{URL: censorTextList + "ar.txt", Language: "ar"},
	{URL: censorTextList + "ja.txt", Language: "ja"},
	{URL: censorTextList + "ko.txt", Language: "ko"},
	{URL: censorTextList + "zh.txt", Language: "zh"},
	{URL: censorTextList + "hi.txt", Language: "hi"},
	{URL: censorTextList + "th.txt", Language: "th"},
	{URL: censorTextList + "tr.txt", Language: "tr"},
	{URL: censorTextList + "sv.txt", Language: "sv"},
	{URL: censorTextList + "no.txt", Language: "no"},
	{URL: censorTextList + "da.txt", Language: "da"},
	{URL: censorTextList + "fi.txt", Language: "fi"},
}
