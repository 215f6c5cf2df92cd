package i18n

var ptBRMessages = map[Code]string{
	CodeAlreadyInitialized:       "Este contrato só pode ser inicializado uma vez.",
	CodeNotInitialized:           "Este contrato ainda não foi inicializado.",
	CodeUnauthorized:             "Você não tem permissão para realizar esta operação.",
	CodeNotAPledger:              "Somente apoiadores ativos podem realizar esta operação.",
	CodeBetaTesterRequired:       "A criação de projetos está limitada a testadores beta.",
	CodeCallerTokenInvalid:       "O token de chamador não é válido.",
	CodeCallerTokenExpired:       "O token de chamador expirou.",
	CodeInvalidFilter:            "O filtro {{.Filter}} não é válido.",
	CodeInvalidAddress:           "O endereço {{.Address}} não é válido.",
	CodeInvalidAmount:            "O valor {{.Amount}} não é válido.",
	CodeMilestoneIndexOutOfRange: "A meta {{.Index}} não existe.",
	CodePledgeBelowMinimum:       "O apoio deve ser de pelo menos {{.Minimum}}.",
	CodeInsufficientAllowance:    "Autorize pelo menos {{.Required}} tokens antes de apoiar.",
	CodeInsufficientVaultFunds:   "O cofre do projeto não tem fundos suficientes para a meta {{.Index}}.",
	CodePrerequisiteUnresolved:   "A meta {{.Prerequisite}} precisa ser concluída antes.",
	CodeMilestoneAlreadyResolved: "A meta {{.Index}} já foi resolvida.",
	CodeGracePeriodInactive:      "Não há período de carência ativo.",
	CodePledgeTooRecent:          "Seu apoio é recente demais para sair neste período de carência.",
	CodeAlreadyClaimed:           "Este resgate já foi feito.",
	CodeProjectNotInProgress:     "O projeto não está mais em andamento.",
	CodeProjectNotFailed:         "Reembolsos só estão disponíveis para projetos que falharam.",
	CodeProjectNotSucceeded:      "Recompensas só estão disponíveis para projetos bem-sucedidos.",
	CodeNotFound:                 "O recurso solicitado não foi encontrado.",
}
