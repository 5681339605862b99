package scanning

import (
	"strings"
)

// Category is an expense category inferred from the establishment name
type Category string

const (
	CategoryHousing       Category = "moradia"
	CategoryUtilities     Category = "contas_fixas"
	CategoryGroceries     Category = "supermercado"
	CategoryTransport     Category = "transporte"
	CategoryHealth        Category = "saude"
	CategoryPersonal      Category = "pessoais"
	CategoryEducation     Category = "educacao"
	CategoryChildren      Category = "filhos"
	CategoryFinancial     Category = "financeiras"
	CategoryLeisure       Category = "lazer"
	CategoryPets          Category = "pets"
	CategoryMiscellaneous Category = "outras"
)

// categoryKeywords is checked in order; the first keyword found wins.
// Keywords are matched as whole words against the folded name.
var categoryKeywords = []struct {
	category Category
	keywords []string
}{
	{CategoryHousing, []string{"imobiliaria", "condominio", "administradora", "predial"}},
	{CategoryUtilities, []string{"energia", "eletrica", "cemig", "copel", "light", "sabesp", "cedae", "companhia", "saneamento", "agua", "esgoto", "telefonica", "vivo", "tim", "claro", "oi", "net", "sky"}},
	{CategoryGroceries, []string{"supermercado", "mercado", "atacadao", "carrefour", "extra", "paes mendonca", "guanabara", "walmart", "assai", "makro", "padaria", "acougue", "hortifruti", "quitanda"}},
	{CategoryTransport, []string{"posto", "combustivel", "shell", "ipiranga", "petrobras", "br distribuidora", "ale", "auto pecas", "mecanica", "oficina", "estacionamento", "uber", "99", "detran"}},
	{CategoryHealth, []string{"farmacia", "drogaria", "droga", "raia", "sao paulo", "pacheco", "drogasil", "ultrafarma", "clinica", "hospital", "laboratorio", "medico", "dentista", "odonto", "academia", "smartfit", "bodytech"}},
	{CategoryPersonal, []string{"salao", "barbearia", "estetica", "cosmetico", "perfumaria", "boticario", "natura", "avon", "renner", "riachuelo", "c&a", "marisa", "calcados", "sapato"}},
	{CategoryEducation, []string{"escola", "colegio", "universidade", "faculdade", "curso", "livraria", "papelaria", "saraiva", "cultura"}},
	{CategoryChildren, []string{"bebe", "infantil", "crianca", "brinquedo", "ri happy", "pbkids", "fraldas"}},
	{CategoryFinancial, []string{"banco", "itau", "bradesco", "santander", "caixa", "bb", "nubank", "inter", "financeira", "credito", "emprestimo"}},
	{CategoryLeisure, []string{"cinema", "teatro", "show", "ingresso", "viagem", "turismo", "hotel", "pousada", "parque", "diversao", "netflix", "spotify", "presente"}},
	{CategoryPets, []string{"pet", "veterinaria", "veterinario", "racao", "animal", "banho e tosa", "petshop", "petz", "cobasi"}},
}

// DetectCategory maps an establishment name to an expense category
func DetectCategory(establishment string) Category {
	name := fold(establishment)
	if strings.TrimSpace(name) == "" {
		return CategoryMiscellaneous
	}
	for _, c := range categoryKeywords {
		for _, kw := range c.keywords {
			if containsKeyword(name, strings.ToUpper(kw)) {
				return c.category
			}
		}
	}
	return CategoryMiscellaneous
}
