package i18n

import "tazzio/internal/core"

// Every table carries the same key set; see TestTablesShareKeys.
var tables = map[core.Language]map[string]string{
	core.LanguageFrench: {
		"app.title":                "Tazzio",
		"nav.dashboard":            "Tableau de bord",
		"nav.expenses":             "Dépenses",
		"nav.budget":               "Budget",
		"nav.savings":              "Épargne",
		"nav.reports":              "Rapports",
		"auth.signIn":              "Se connecter",
		"auth.signUp":              "Créer un compte",
		"auth.signOut":             "Se déconnecter",
		"auth.resetSent":           "Un e-mail de réinitialisation a été envoyé",
		"dashboard.totalIncome":    "Revenus totaux",
		"dashboard.totalExpenses":  "Dépenses du mois",
		"dashboard.remaining":      "Reste à dépenser",
		"expense.add":              "Ajouter une dépense",
		"expense.amount":           "Montant",
		"expense.category":         "Catégorie",
		"expense.buyer":            "Acheteur",
		"expense.description":      "Description",
		"expense.date":             "Date",
		"budget.status.safe":       "Dans le budget",
		"budget.status.warning":    "Attention",
		"budget.status.danger":     "Budget dépassé",
		"savings.completed":        "Objectif atteint",
		"savings.add":              "Nouvel objectif",
		"report.week":              "Cette semaine",
		"report.month":             "Ce mois",
		"report.year":              "Cette année",
		"settings.language":        "Langue",
		"settings.currency":        "Devise",
		"warning.lastBuyer":        "Il doit rester au moins un acheteur",
		"warning.categoryInUse":    "Cette catégorie est utilisée par des dépenses",
		"error.invalidCredentials": "E-mail ou mot de passe incorrect",
		"error.notAuthenticated":   "Votre session a expiré, veuillez vous reconnecter",
		"error.emailTaken":         "Cette adresse e-mail est déjà utilisée",
		"error.validation":         "Veuillez vérifier les champs saisis",
		"error.remote":             "Le service est momentanément indisponible",
		"error.notFound":           "Élément introuvable",
	},
	core.LanguageEnglish: {
		"app.title":                "Tazzio",
		"nav.dashboard":            "Dashboard",
		"nav.expenses":             "Expenses",
		"nav.budget":               "Budget",
		"nav.savings":              "Savings",
		"nav.reports":              "Reports",
		"auth.signIn":              "Sign in",
		"auth.signUp":              "Create account",
		"auth.signOut":             "Sign out",
		"auth.resetSent":           "A password reset email has been sent",
		"dashboard.totalIncome":    "Total income",
		"dashboard.totalExpenses":  "This month's expenses",
		"dashboard.remaining":      "Remaining",
		"expense.add":              "Add expense",
		"expense.amount":           "Amount",
		"expense.category":         "Category",
		"expense.buyer":            "Buyer",
		"expense.description":      "Description",
		"expense.date":             "Date",
		"budget.status.safe":       "On track",
		"budget.status.warning":    "Careful",
		"budget.status.danger":     "Over budget",
		"savings.completed":        "Goal reached",
		"savings.add":              "New goal",
		"report.week":              "This week",
		"report.month":             "This month",
		"report.year":              "This year",
		"settings.language":        "Language",
		"settings.currency":        "Currency",
		"warning.lastBuyer":        "At least one buyer must remain",
		"warning.categoryInUse":    "This category is used by existing expenses",
		"error.invalidCredentials": "Wrong email or password",
		"error.notAuthenticated":   "Your session has expired, please sign in again",
		"error.emailTaken":         "This email address is already registered",
		"error.validation":         "Please check the highlighted fields",
		"error.remote":             "The service is temporarily unavailable",
		"error.notFound":           "Item not found",
	},
	core.LanguageSpanish: {
		"app.title":                "Tazzio",
		"nav.dashboard":            "Panel",
		"nav.expenses":             "Gastos",
		"nav.budget":               "Presupuesto",
		"nav.savings":              "Ahorros",
		"nav.reports":              "Informes",
		"auth.signIn":              "Iniciar sesión",
		"auth.signUp":              "Crear cuenta",
		"auth.signOut":             "Cerrar sesión",
		"auth.resetSent":           "Se ha enviado un correo para restablecer la contraseña",
		"dashboard.totalIncome":    "Ingresos totales",
		"dashboard.totalExpenses":  "Gastos del mes",
		"dashboard.remaining":      "Disponible",
		"expense.add":              "Añadir gasto",
		"expense.amount":           "Importe",
		"expense.category":         "Categoría",
		"expense.buyer":            "Comprador",
		"expense.description":      "Descripción",
		"expense.date":             "Fecha",
		"budget.status.safe":       "Dentro del presupuesto",
		"budget.status.warning":    "Atención",
		"budget.status.danger":     "Presupuesto superado",
		"savings.completed":        "Objetivo alcanzado",
		"savings.add":              "Nuevo objetivo",
		"report.week":              "Esta semana",
		"report.month":             "Este mes",
		"report.year":              "Este año",
		"settings.language":        "Idioma",
		"settings.currency":        "Moneda",
		"warning.lastBuyer":        "Debe quedar al menos un comprador",
		"warning.categoryInUse":    "Esta categoría está en uso por algunos gastos",
		"error.invalidCredentials": "Correo o contraseña incorrectos",
		"error.notAuthenticated":   "Tu sesión ha caducado, vuelve a iniciar sesión",
		"error.emailTaken":         "Este correo ya está registrado",
		"error.validation":         "Revisa los campos introducidos",
		"error.remote":             "El servicio no está disponible en este momento",
		"error.notFound":           "Elemento no encontrado",
	},
}

var quotes = map[core.Language][]string{
	core.LanguageFrench: {
		"Votre budget est votre meilleur ami ☕",
		"Chaque euro économisé est un pas vers vos rêves 🌟",
		"La planification financière, c'est comme un bon café : ça se savoure lentement ☕",
		"Vos objectifs financiers sont à portée de main 💫",
		"Un budget bien géré, c'est la liberté assurée 🕊️",
	},
	core.LanguageEnglish: {
		"Your budget is your best friend ☕",
		"Every euro saved is a step towards your dreams 🌟",
		"Financial planning is like a good coffee: best enjoyed slowly ☕",
		"Your financial goals are within reach 💫",
		"A well-managed budget means freedom assured 🕊️",
	},
	core.LanguageSpanish: {
		"Tu presupuesto es tu mejor amigo ☕",
		"Cada euro ahorrado es un paso hacia tus sueños 🌟",
		"Planificar tus finanzas es como un buen café: se disfruta despacio ☕",
		"Tus metas financieras están a tu alcance 💫",
		"Un presupuesto bien gestionado es libertad asegurada 🕊️",
	},
}
