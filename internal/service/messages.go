package service

// User-facing replies. None of them carry internal identifiers or errors.
const (
	msgHelp = "您好！這是一個整合 Notion 客戶資料與公司產品知識庫的助理 Bot。\n\n" +
		"主要指令：\n" +
		"1. /ask [客戶名稱] [問題]\n" +
		"   - 載入客戶資料並針對您的問題進行回覆。\n\n" +
		"2. /ask [客戶名稱]\n" +
		"   - 僅載入並顯示客戶畫像資料，以開始團隊討論。\n\n" +
		"3. /search_db [產品1,產品2] [問題]\n" +
		"   - 不需載入客戶，直接查詢指定產品的資料。\n\n" +
		"在載入客戶資料後，您可以使用以下指令：\n" +
		"- /query [問題]: 根據當前討論向 AI 提問。\n" +
		"- /products [問題]: 根據當前討論搜尋產品資料庫。\n" +
		"- /end: 結束目前對話並產生討論摘要。\n" +
		"- /save: 將摘要寫入 Notion。\n" +
		"- /cancel: 取消目前的會談，不寫入任何資料。\n\n" +
		"您也可以隨時輸入 /start 來查看此說明。"

	msgAskUsage      = "指令用法：\n- /ask [客戶名稱] [問題]\n- /ask [客戶名稱]"
	msgQueryUsage    = "請輸入問題：/query [你的問題]"
	msgProductsUsage = "請輸入查詢產品資料庫的問題：/products [你的問題]"
	msgSearchUsage   = "指令用法：/search_db [產品1,產品2] [問題]"

	msgSessionActive  = "目前已有進行中的會談：【%s】。請先使用 /end 結束或 /cancel 取消後，再開始新的會談。"
	msgNoSession      = "目前沒有進行中的會談。"
	msgNeedSession    = "沒有進行中的對話，請先用 /ask [客戶名稱] [問題] 開始。"
	msgCustomerLookup = "從 Notion 查詢客戶資料時發生錯誤，請稍後再試。"
	msgCustomerAbsent = "在 Notion 中找不到名為「%s」的客戶。"
	msgCustomerMany   = "找到多筆符合的客戶，請更精確地指定名稱：\n- %s"
	msgSessionStore   = "暫時無法存取會談狀態，請稍後再試。"

	msgAskAnswer     = "【%s】\nQ: %s\n\nA:\n%s\n\n（可成員討論，或使用 /query, /products 等指令詢問，或用 /end 結束）"
	msgProfileAnswer = "【%s】\n\nA:\n%s\n\n（可成員討論，或使用 /query, /products 等指令詢問，或用 /end 結束）"

	msgNoRelevant      = "根據目前索引到的文件，找不到與此問題足夠相關的內容，請確認資料庫或換個問法。"
	msgGenerateFailed  = "抱歉，產生回答時發生錯誤，請稍後再試。"
	msgSummaryFailed   = "產生摘要時發生錯誤，請稍後再試，或使用 /cancel 取消。"
	msgSummaryReady    = "【%s】討論摘要：\n\n%s\n\n請輸入 /save 將摘要寫入 Notion，或輸入 /cancel 放棄。"
	msgSessionGone     = "會談已被取消，本次摘要不會保存。"
	msgSaveNotReady    = "尚未產生討論摘要，請先使用 /end。"
	msgSaveFailed      = "寫入 Notion 時發生錯誤，摘要仍保留，請稍後再試 /save。"
	msgSaved           = "已將本次討論摘要寫入 Notion 頁面：【%s】"
	msgSummaryHeading  = "與 %s 的討論摘要"
	msgDefaultSpeaker  = "團隊"
	msgCancelled       = "已取消目前的會談，未寫入任何資料。"
	msgUnknownCommand  = "抱歉，我無法識別這個指令。請確認您的輸入是否正確。"
)
