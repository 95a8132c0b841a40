package i18n

// ZhCNMessages 简体中文消息目录
var ZhCNMessages = map[string]string{
	"panel.todos":     "待办",
	"panel.assistant": "助手",
	"panel.logs":      "日志",

	"screen.login":    "登录",
	"screen.register": "注册账号",

	"field.email":            "邮箱",
	"field.password":         "密码",
	"field.password_confirm": "确认密码",
	"field.first_name":       "名",
	"field.last_name":        "姓",
	"field.title":            "标题",
	"field.description":      "描述（可选）",

	"hint.login":     "enter 提交 · tab 下一项 · ctrl+r 注册 · ctrl+c 退出",
	"hint.register":  "enter 提交 · tab 下一项 · ctrl+r 返回登录 · ctrl+c 退出",
	"hint.todos":     "n 新建 · 空格 切换完成 · d 删除 · r 刷新 · tab 切换 · ctrl+l 退出登录 · ctrl+c 退出",
	"hint.form":      "enter 保存 · tab 下一项 · esc 取消",
	"hint.assistant": "enter 发送 · esc 清空 · tab 切换 · ctrl+l 退出登录",
	"hint.logs":      "tab 切换 · ctrl+c 退出",

	"status.loading":       "正在加载待办...",
	"status.submitting":    "正在保存...",
	"status.composing":     "助手正在输入...",
	"status.signing_in":    "正在登录...",
	"status.signed_in":     "已登录：%s",
	"status.signed_out":    "已退出登录",
	"status.expired":       "登录已过期，请重新登录。",
	"status.registered":    "账号已创建，请登录。",
	"status.registered_in": "账号已创建，已登录：%s",
	"status.api":           "接口 %s",

	"todo.confirm":     "%s (y/n)",
	"todo.count":       "共 %d 项 · 已完成 %d 项",
	"todo.new":         "新建待办",
	"todo.not_ready":   "待办尚未加载，按 r 重试",
	"todo.retry":       "按 r 重试",
	"todo.deleted":     "已删除 %q",
	"todo.created":     "已添加 %q",
	"todo.toggled_on":  "已完成 %q",
	"todo.toggled_off": "已重新打开 %q",

	"assistant.welcome":     "你好！我是你的待办助手。",
	"assistant.try":         "试试这些（alt+1..4）：",
	"assistant.warning":     "助手未配置：%s",
	"assistant.you":         "你",
	"assistant.bot":         "助手",
	"assistant.placeholder": "让助手帮你添加、查找或完成待办...",

	"repl.welcome":         "todo %s · 输入 /help 查看命令",
	"repl.login_required":  "请先 /login 登录。",
	"repl.unknown":         "未知命令：%s（试试 /help）",
	"repl.usage":           "用法：%s",
	"repl.bye":             "再见。",
	"repl.not_signed_in":   "尚未登录。",
	"repl.token_expires":   "token 过期时间 %s",
	"repl.token_opaque":    "token 不是 JWT",
	"repl.events":          "最近的登录记录：",
	"repl.cancelled":       "已取消。",
	"repl.no_match":        "没有匹配 %q 的待办",
	"repl.server_saved":    "接口地址已保存到 %s（重启后生效）",
	"repl.chat_mode_on":    "已进入对话模式，直接输入的文字会发给助手；/chat off 退出。",
	"repl.chat_mode_off":   "已退出对话模式。",
	"repl.password_prompt": "密码：",
	"repl.confirm_prompt":  "确认密码：",
	"repl.help": `命令：
  /login <email>              登录（随后输入密码）
  /register <email> [名 姓]    注册账号
  /logout                     退出登录
  /whoami                     查看当前用户
  /list                       列出待办
  /add <标题> [| 描述]         新建待办
  /show <序号|id>              查看单条待办
  /edit <序号|id> <标题> [| 描述]  修改待办
  /done <序号|id>              切换完成状态
  /rm <序号|id>                删除待办（会先确认）
  /chat [文字|on|off]          与助手对话
  /status                     助手是否可用
  /server <url>               保存接口地址
  /help                       显示本帮助
  /exit                       退出`,
}
