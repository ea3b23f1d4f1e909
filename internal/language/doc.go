// Package language normalises the language codes found in AniDB documents and
// in user configuration so they can be compared.
//
// AniDB tags titles with ISO 639-1 codes, BCP 47 tags with script subtags
// (zh-Hans), and private transliteration codes such as x-jat (romanised
// Japanese). Configuration may use any of those, an ISO 639-2 code, or a plain
// English word ("japanese").
package language
